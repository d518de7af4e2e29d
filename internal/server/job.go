package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ytkit/internal/core"
	"ytkit/internal/core/scheduler"
	"ytkit/internal/encode"
	"ytkit/internal/stream"
)

// JobState is the lifecycle of one submitted download request, grounded
// on the teacher's SessionState enum, generalized from a single
// streaming session to a whole scheduler.Scheduler.Download run.
type JobState int

const (
	JobQueued JobState = iota
	JobRunning
	JobDone
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Job tracks one in-flight or completed scheduler run.
type Job struct {
	ID        string
	StartedAt time.Time
	Cancel    context.CancelFunc

	mu      sync.Mutex
	state   JobState
	results []core.Result
	err     error
}

func (j *Job) setState(s JobState) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

func (j *Job) finish(results []core.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = results
	j.err = err
	if err != nil {
		j.state = JobFailed
	} else {
		j.state = JobDone
	}
}

// Snapshot returns a consistent read of the job's current state.
func (j *Job) Snapshot() (JobState, []core.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.results, j.err
}

// JobManager runs scheduler.Scheduler instances on behalf of HTTP
// requests, one per submitted URL, mirroring the shape of the teacher's
// SessionManager (a mutex-guarded map of live executions, one goroutine
// per execution) generalized from a single Discord voice session to an
// arbitrary number of concurrent playlist downloads.
type JobManager struct {
	ctx      context.Context
	playlist stream.PlaylistClient
	meta     stream.MetadataClient
	streamer stream.StreamClient
	adapter  *encode.Adapter
	hub      *wsHub
	log      zerolog.Logger
	outDir   string

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobManager builds a JobManager over the given collaborators. hub
// may be nil, in which case scheduler events are not re-broadcast.
func NewJobManager(ctx context.Context, playlist stream.PlaylistClient, meta stream.MetadataClient, streamer stream.StreamClient, adapter *encode.Adapter, hub *wsHub, outDir string, log zerolog.Logger) *JobManager {
	return &JobManager{
		ctx:      ctx,
		playlist: playlist,
		meta:     meta,
		streamer: streamer,
		adapter:  adapter,
		hub:      hub,
		outDir:   outDir,
		log:      log.With().Str("component", "jobmanager").Logger(),
		jobs:     make(map[string]*Job),
	}
}

// StartDownload resolves req into a Scheduler.Config and starts it
// running in the background, returning its job id immediately.
func (m *JobManager) StartDownload(req DownloadRequest) string {
	id := uuid.NewString()

	playlist := m.playlist
	playlistID := req.URL
	if m.playlist.ValidateID(req.URL) {
		if resolved, err := m.playlist.GetPlaylistID(req.URL); err == nil {
			playlistID = resolved
		}
	} else {
		playlist = newSingleItemPlaylist(req.URL)
	}

	cfg := scheduler.Config{
		PlaylistID:     playlistID,
		Output:         req.Output,
		MaxConnections: req.MaxConnections,
		Retries:        req.Retries,
		Timeout:        time.Duration(req.TimeoutSeconds) * time.Second,
		OutDir:         m.outDir,
	}
	if req.Quality != "" {
		cfg.PlaylistOptions.Quality = []string{req.Quality}
	}
	if req.Filter != "" {
		cfg.PlaylistOptions.Filter = core.Filter(req.Filter)
	}
	if req.Format != "" || req.AudioCodec != "" || req.VideoCodec != "" {
		cfg.EncoderOptions = &core.EncodeOptions{
			Format:     req.Format,
			AudioCodec: req.AudioCodec,
			VideoCodec: req.VideoCodec,
		}
	}

	jobCtx, cancel := context.WithCancel(m.ctx)
	job := &Job{ID: id, StartedAt: time.Now(), Cancel: cancel, state: JobQueued}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	s := scheduler.New(cfg, playlist, m.meta, m.streamer, m.adapter, m.log)

	job.setState(JobRunning)
	if m.hub != nil {
		go m.pumpEvents(jobCtx, s)
	}

	go func() {
		results, err := s.Download(jobCtx)
		job.finish(results, err)
		cancel()
		m.log.Info().Str("job_id", id).Int("results", len(results)).Err(err).Msg("job finished")
	}()

	return id
}

// pumpEvents forwards every scheduler event onto the WebSocket hub
// until ctx is cancelled, which happens once the job's Download call
// returns — the scheduler never closes its event channel on its own.
func (m *JobManager) pumpEvents(ctx context.Context, s *scheduler.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.Events():
			m.hub.Broadcast("job_event", messageToDTO(msg))
		}
	}
}

// Get returns the job for id, or nil if unknown.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Cancel stops a running job by cancelling its context. It is a no-op
// for jobs that are already terminal or unknown. It reports whether id
// names a known job.
func (m *JobManager) Cancel(id string) bool {
	job := m.Get(id)
	if job == nil {
		return false
	}
	job.mu.Lock()
	terminal := job.state == JobDone || job.state == JobFailed || job.state == JobCancelled
	if !terminal {
		job.state = JobCancelled
	}
	job.mu.Unlock()
	if !terminal {
		job.Cancel()
	}
	return true
}

// singleItemPlaylist adapts a single video URL into a one-item
// stream.PlaylistClient, mirroring main.go's helper of the same shape,
// so a request for a lone video can still be run through the bounded
// scheduler instead of a separate code path.
type singleItemPlaylist struct {
	url string
}

func newSingleItemPlaylist(url string) *singleItemPlaylist {
	return &singleItemPlaylist{url: url}
}

func (p *singleItemPlaylist) ValidateID(id string) bool { return id == p.url }

func (p *singleItemPlaylist) GetPlaylistID(url string) (string, error) { return url, nil }

func (p *singleItemPlaylist) Resolve(ctx context.Context, id string, opts core.DownloadOptions) ([]core.PlaylistItem, error) {
	return []core.PlaylistItem{{ID: id, URL: id}}, nil
}

// ActiveJobCount returns the number of jobs not yet in a terminal state.
func (m *JobManager) ActiveJobCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, j := range m.jobs {
		state, _, _ := j.Snapshot()
		if state == JobQueued || state == JobRunning {
			count++
		}
	}
	return count
}

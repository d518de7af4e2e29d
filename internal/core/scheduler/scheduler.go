// Package scheduler implements the bounded-concurrency playlist
// dispatcher spec.md §4.4 describes, grounded in the teacher's
// internal/server.SessionManager (a map of live per-id executions
// guarded by a mutex, one goroutine per execution) generalized from a
// single-session Discord player into a fixed-size worker pool pulling
// from a shared task queue with a per-item retry ladder.
package scheduler

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"ytkit/internal/core"
	"ytkit/internal/core/worker"
	"ytkit/internal/encode"
	"ytkit/internal/stream"
)

// killMessage is the base64-encoded {"type":"kill"} control envelope
// spec.md §6 names, sent to a worker being superseded or cancelled.
var killMessage = []byte(base64.StdEncoding.EncodeToString([]byte(`{"type":"kill"}`)))

// DefaultMaxConnections is the default worker pool size.
const DefaultMaxConnections = 5

// DefaultRetries is the default per-item retry budget.
const DefaultRetries = 5

// DefaultTimeout is the default per-worker inactivity timeout.
const DefaultTimeout = 120 * time.Second

// RetryDelay is the fixed inter-attempt backoff applied between a
// failed attempt and its retry.
const RetryDelay = 1 * time.Second

// Config carries the constructor inputs spec.md §4.4 names.
type Config struct {
	PlaylistID      string
	PlaylistOptions core.DownloadOptions
	Output          string
	MaxConnections  int
	Retries         int
	Timeout         time.Duration
	EncoderOptions  *core.EncodeOptions
	OutDir          string
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.Retries < 0 {
		c.Retries = DefaultRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Scheduler resolves a playlist and runs its items with bounded
// concurrency, retrying failed items up to Config.Retries.
type Scheduler struct {
	cfg      Config
	playlist stream.PlaylistClient
	meta     stream.MetadataClient
	streamer stream.StreamClient
	adapter  *encode.Adapter
	log      zerolog.Logger

	events chan core.Message

	liveMu sync.Mutex
	live   map[string]*worker.Worker

	retryMu sync.Mutex
	retries map[string]*core.RetryState
}

// New builds a Scheduler over the given playlist/metadata/stream
// clients and optional encoder adapter (nil when no item in this run
// requests EncodeOptions).
func New(cfg Config, playlist stream.PlaylistClient, meta stream.MetadataClient, streamer stream.StreamClient, adapter *encode.Adapter, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		playlist: playlist,
		meta:     meta,
		streamer: streamer,
		adapter:  adapter,
		log:      log.With().Str("component", "scheduler").Logger(),
		events:   make(chan core.Message, 256),
		live:     make(map[string]*worker.Worker),
		retries:  make(map[string]*core.RetryState),
	}
}

// Events exposes the Scheduler's aggregated event surface: every
// worker event, re-emitted with source preserved, plus the
// Scheduler-emitted playlistItems, retry, online, exit,
// workerTerminated, and error events spec.md §4.4 names.
func (s *Scheduler) Events() <-chan core.Message { return s.events }

// Download resolves the configured playlist and runs every item to a
// terminal result, honoring the bounded worker pool and retry policy.
// Playlist resolution failure aborts with a single error and no
// per-item results, per spec.md §4.4's Scheduler-fatal classification.
func (s *Scheduler) Download(ctx context.Context) ([]core.Result, error) {
	items, err := s.playlist.Resolve(ctx, s.cfg.PlaylistID, s.cfg.PlaylistOptions)
	if err != nil {
		return nil, core.NewError(core.KindMetadata, err)
	}

	s.emit(core.MsgPlaylistItems, core.PlaylistItem{}, map[string]any{"playlistItems": items}, nil)

	if len(items) == 0 {
		return []core.Result{}, nil
	}

	pool := s.cfg.MaxConnections
	if pool > len(items) {
		pool = len(items)
	}

	tasks := make(chan core.PlaylistItem, len(items))
	for _, item := range items {
		tasks <- item
	}
	close(tasks)

	results := make(chan core.Result, len(items))
	var wg sync.WaitGroup
	wg.Add(pool)
	for i := 0; i < pool; i++ {
		go func() {
			defer wg.Done()
			for item := range tasks {
				results <- s.downloadTask(ctx, item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]core.Result, 0, len(items))
	for r := range results {
		out = append(out, r)
	}
	return out, nil
}

// downloadTask runs item to completion, retrying on failure per the
// ladder in spec.md §4.4 step 6, and returns exactly one terminal
// result.
func (s *Scheduler) downloadTask(ctx context.Context, item core.PlaylistItem) core.Result {
	delay := backoff.NewConstantBackOff(RetryDelay)

	for {
		if prior := s.takeLiveWorker(item.ID); prior != nil {
			prior.Send(killMessage)
			s.emit(core.MsgWorkerTerminated, item, map[string]any{"code": 1}, nil)
		}

		w := worker.New(item, worker.Config{
			Output:          s.cfg.Output,
			Timeout:         s.cfg.Timeout,
			DownloadOptions: s.cfg.PlaylistOptions,
			EncodeOptions:   s.cfg.EncoderOptions,
		}, s.meta, s.streamer, s.adapter, s.cfg.OutDir, s.log)

		s.registerLiveWorker(item.ID, w)
		s.emit(core.MsgOnline, item, nil, nil)

		go s.pumpWorkerEvents(item, w)
		result := w.Run(ctx)

		s.unregisterLiveWorker(item.ID)
		s.emit(core.MsgExit, item, map[string]any{"code": result.Code}, nil)

		if result.Code == 0 {
			return result
		}

		s.emit(core.MsgError, item, nil, result.Err)

		if ctx.Err() != nil {
			return result
		}

		left := s.retryLeftAfterFailure(item)
		if left >= 0 {
			s.emit(core.MsgRetry, item, map[string]any{"left": left}, nil)
			select {
			case <-ctx.Done():
				return result
			case <-time.After(delay.NextBackOff()):
			}
			continue
		}

		return core.Result{
			Item: item,
			Code: 1,
			Err:  core.NewError(core.KindRetryExhausted, fmt.Errorf("Worker id: %s exited with code 1", item.ID)),
		}
	}
}

// retryLeftAfterFailure returns the item's remaining retry budget
// before consuming this attempt, initializing it lazily to
// Config.Retries on first failure, then decrements it for the next
// call. It returns -1 once the budget is exhausted. Per spec.md §4.4
// step 6, the emitted "left" value is the pre-decrement count (e.g.
// left=2 then left=1 for retries=2), not the post-decrement one.
func (s *Scheduler) retryLeftAfterFailure(item core.PlaylistItem) int {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()

	state, ok := s.retries[item.ID]
	if !ok {
		state = &core.RetryState{Item: item, Left: s.cfg.Retries}
		s.retries[item.ID] = state
	}
	if state.Left <= 0 {
		return -1
	}
	left := state.Left
	state.Left--
	return left
}

func (s *Scheduler) registerLiveWorker(id string, w *worker.Worker) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	s.live[id] = w
}

func (s *Scheduler) unregisterLiveWorker(id string) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	delete(s.live, id)
}

func (s *Scheduler) takeLiveWorker(id string) *worker.Worker {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	w, ok := s.live[id]
	if !ok {
		return nil
	}
	delete(s.live, id)
	return w
}

// Terminate forcibly stops the live worker for item, per spec.md §5's
// partial-cancellation semantics. It is a no-op if no worker for the
// item is currently live.
func (s *Scheduler) Terminate(item core.PlaylistItem) {
	if w := s.takeLiveWorker(item.ID); w != nil {
		w.Send(killMessage)
		s.emit(core.MsgWorkerTerminated, item, map[string]any{"code": 1}, nil)
	}
}

// pumpWorkerEvents re-emits every event a worker publishes on the
// Scheduler's own event surface, preserving source, per spec.md §4.4
// step 5.
func (s *Scheduler) pumpWorkerEvents(item core.PlaylistItem, w *worker.Worker) {
	for msg := range w.Events() {
		msg.Source = item
		select {
		case s.events <- msg:
		default:
			s.log.Warn().Str("item_id", item.ID).Msg("dropping re-emitted worker event, subscriber too slow")
		}
	}
}

func (s *Scheduler) emit(t core.MessageType, source core.PlaylistItem, details map[string]any, err error) {
	msg := core.Message{Type: t, Source: source, Details: details, Err: err}
	select {
	case s.events <- msg:
	default:
		s.log.Warn().Str("type", string(t)).Msg("dropping scheduler event, subscriber too slow")
	}
}

// Package worker implements the per-item download state machine spec.md
// §4.3 describes, grounded in the teacher's internal/server.Session
// (state enum with a String() method, mutex-guarded state transitions,
// a run loop driven by a cancellable context) generalized from a
// single fixed Discord-audio pipeline into the metadata → stream →
// size → sink → terminal lifecycle a playlist download requires.
package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ytkit/internal/core"
	"ytkit/internal/core/progress"
	"ytkit/internal/core/timeoutstream"
	"ytkit/internal/encode"
	"ytkit/internal/stream"
)

// State is one node of the DownloadWorker state machine in spec.md
// §4.3.
type State int

const (
	StateIdle State = iota
	StateMetaKnown
	StateStreaming
	StateMeasured
	StateUnmeasured
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMetaKnown:
		return "meta_known"
	case StateStreaming:
		return "streaming"
	case StateMeasured:
		return "measured"
	case StateUnmeasured:
		return "unmeasured"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultOutputTemplate is the filename template used when a
// worker's Config.Output is empty.
const DefaultOutputTemplate = "{videoDetails.title}"

// DefaultTimeout is the per-worker inactivity timeout, distinct from
// TimeoutStream's own package default — spec.md §5 notes the
// worker-level default is 120s, twenty-four times TimeoutStream's 5s.
const DefaultTimeout = 120 * time.Second

// Config carries the constructor inputs spec.md §4.3 names.
type Config struct {
	Output          string
	Timeout         time.Duration
	DownloadOptions core.DownloadOptions
	EncodeOptions   *core.EncodeOptions
}

func (c Config) withDefaults() Config {
	if c.Output == "" {
		c.Output = DefaultOutputTemplate
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// controlMessage is the base64-JSON control-plane envelope spec.md
// §6 names.
type controlMessage struct {
	Type string `json:"type"`
}

// Worker executes one playlist item's full download lifecycle.
type Worker struct {
	item     core.PlaylistItem
	cfg      Config
	meta     stream.MetadataClient
	streamer stream.StreamClient
	adapter  *encode.Adapter
	outDir   string
	log      zerolog.Logger

	events  chan core.Message
	control chan []byte

	mu    sync.Mutex
	state State
}

// New builds a Worker for item. outDir is the directory output files
// are written under.
func New(item core.PlaylistItem, cfg Config, meta stream.MetadataClient, streamer stream.StreamClient, adapter *encode.Adapter, outDir string, log zerolog.Logger) *Worker {
	return &Worker{
		item:     item,
		cfg:      cfg.withDefaults(),
		meta:     meta,
		streamer: streamer,
		adapter:  adapter,
		outDir:   outDir,
		log:      log.With().Str("item_id", item.ID).Logger(),
		events:   make(chan core.Message, 32),
		control:  make(chan []byte, 4),
	}
}

// Events exposes the worker's outbound message stream, exactly the
// events named in spec.md §4.3: videoInfo, info, contentLength,
// progress, elapsed, end, timeout, error.
func (w *Worker) Events() <-chan core.Message { return w.events }

// Send delivers a base64-encoded JSON control message, e.g.
// `{"type":"kill"}`, per spec.md §6.
func (w *Worker) Send(encoded []byte) {
	select {
	case w.control <- encoded:
	default:
	}
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Run executes the worker to completion and returns its terminal
// result. It never panics; every failure routes through fail().
func (w *Worker) Run(parent context.Context) core.Result {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var killed bool
	killCh := make(chan struct{})
	go w.watchControl(ctx, killCh, &killed)

	result := w.run(ctx, killCh, &killed)
	return result
}

func (w *Worker) watchControl(ctx context.Context, killCh chan struct{}, killed *bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-w.control:
			decoded, err := base64.StdEncoding.DecodeString(string(raw))
			if err != nil {
				continue
			}
			var msg controlMessage
			if err := json.Unmarshal(decoded, &msg); err != nil {
				continue
			}
			if msg.Type == "kill" {
				*killed = true
				close(killCh)
				return
			}
		}
	}
}

func (w *Worker) run(ctx context.Context, killCh chan struct{}, killed *bool) core.Result {
	// Registered before stopTickers' defer below so it runs last,
	// after both progress tickers have fully stopped — closing
	// w.events while a ticker goroutine could still call w.emit would
	// panic.
	defer close(w.events)

	w.setState(StateIdle)

	info, err := w.getInfo(ctx, killCh)
	if err != nil {
		return w.fail(core.KindMetadata, err, *killed)
	}
	w.setState(StateMetaKnown)
	w.emit(core.MsgVideoInfo, map[string]any{"videoInfo": info})

	bs, err := w.streamer.DownloadFromInfo(ctx, info, w.cfg.DownloadOptions)
	if err != nil {
		return w.fail(core.KindStream, err, *killed)
	}
	w.setState(StateStreaming)

	format, firstResp, err := w.awaitFormat(ctx, bs, killCh)
	if err != nil {
		bs.Destroy()
		return w.fail(core.KindMetadata, err, *killed)
	}
	w.emit(core.MsgInfo, map[string]any{"videoFormat": format})

	size, known := w.detectSize(format, firstResp)

	ts := timeoutstream.New(w.cfg.Timeout)
	ts.Attach()

	var meter *progress.Meter
	var progressTicker, elapsedTicker *progress.Ticker
	if known {
		w.setState(StateMeasured)
		w.emit(core.MsgContentLength, map[string]any{"contentLength": size})

		meter = progress.NewMeter(size)
		progressTicker = progress.StartTicker(ctx, progress.TickInterval, func() {
			w.emit(core.MsgProgress, map[string]any{"progress": meter.Snapshot()})
		})
		elapsedTicker = progress.StartTicker(ctx, progress.ElapsedInterval, func() {
			w.emit(core.MsgElapsed, map[string]any{"elapsed": ts.Elapsed()})
		})
	} else {
		w.setState(StateUnmeasured)
	}
	stopTickers := func() {
		if progressTicker != nil {
			progressTicker.Stop()
		}
		if elapsedTicker != nil {
			elapsedTicker.Stop()
		}
	}
	defer stopTickers()

	outputPath, sinkErr := w.openOutputPath(info, format)
	if sinkErr != nil {
		bs.Destroy()
		ts.End()
		return w.fail(core.KindConfig, sinkErr, *killed)
	}
	sink, err := os.Create(outputPath)
	if err != nil {
		bs.Destroy()
		ts.End()
		return w.fail(core.KindConfig, fmt.Errorf("create output file: %w", err), *killed)
	}

	endCh := make(chan struct{})
	errCh := make(chan error, 1)

	if w.cfg.EncodeOptions != nil {
		run, err := w.adapter.Create(ctx, bs, sink, *w.cfg.EncodeOptions, info.VideoDetails, format)
		if err != nil {
			sink.Close()
			os.Remove(outputPath)
			bs.Destroy()
			ts.End()
			return w.fail(core.KindEncoder, err, *killed)
		}
		go func() {
			select {
			case e, ok := <-run.Err():
				if ok && e != nil {
					errCh <- e
				}
			case <-run.End():
			}
			close(endCh)
		}()
	} else {
		go w.copyRaw(bs, sink, ts, meter, endCh, errCh)
	}

	select {
	case <-ctx.Done():
		bs.Destroy()
		sink.Close()
		os.Remove(outputPath)
		ts.End()
		if *killed {
			return w.fail(core.KindCancelled, fmt.Errorf("worker killed"), true)
		}
		return w.fail(core.KindCancelled, ctx.Err(), *killed)
	case <-killCh:
		bs.Destroy()
		sink.Close()
		os.Remove(outputPath)
		ts.End()
		return w.fail(core.KindCancelled, fmt.Errorf("worker killed"), true)
	case <-ts.Timeout():
		bs.Destroy()
		sink.Close()
		os.Remove(outputPath)
		return w.fail(core.KindTimeout, fmt.Errorf("inactivity timeout after %ds", ts.Elapsed()), *killed)
	case err := <-errCh:
		bs.Destroy()
		sink.Close()
		os.Remove(outputPath)
		ts.End()
		return w.fail(core.KindStream, err, *killed)
	case <-endCh:
		ts.End()
		if w.cfg.EncodeOptions == nil {
			sink.Close()
		}
		w.setState(StateDone)
		w.emit(core.MsgEnd, nil)
		return core.Result{Item: w.item, Code: 0}
	}
}

func (w *Worker) getInfo(ctx context.Context, killCh chan struct{}) (*core.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	type result struct {
		info *core.VideoInfo
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		info, err := w.meta.GetInfo(ctx, w.item.URL)
		resultCh <- result{info, err}
	}()

	select {
	case <-killCh:
		return nil, fmt.Errorf("killed")
	case <-ctx.Done():
		return nil, fmt.Errorf("getInfoTimeout")
	case r := <-resultCh:
		return r.info, r.err
	}
}

func (w *Worker) awaitFormat(ctx context.Context, bs stream.ByteStream, killCh chan struct{}) (core.VideoFormat, *stream.Response, error) {
	timeout := time.NewTimer(w.cfg.Timeout)
	defer timeout.Stop()

	var format *core.VideoFormat
	var resp *stream.Response
	for {
		select {
		case <-killCh:
			return core.VideoFormat{}, nil, fmt.Errorf("killed")
		case <-timeout.C:
			return core.VideoFormat{}, nil, fmt.Errorf("timed out waiting for videoFormat")
		case ev, ok := <-bs.Events():
			if !ok {
				return core.VideoFormat{}, nil, fmt.Errorf("stream closed before videoFormat")
			}
			switch ev.Type {
			case stream.EventInfo:
				format = ev.Format
			case stream.EventResponse:
				resp = ev.Response
			case stream.EventError:
				return core.VideoFormat{}, nil, ev.Err
			}
			if format != nil {
				return *format, resp, nil
			}
		}
	}
}

func (w *Worker) detectSize(format core.VideoFormat, resp *stream.Response) (int64, bool) {
	if format.Live() && format.ContentLength == 0 {
		return 0, false
	}
	if format.ContentLength > 0 {
		return format.ContentLength, true
	}
	if resp != nil {
		if cl, ok := resp.ContentLength(); ok {
			return cl, true
		}
	}
	return 0, false
}

func (w *Worker) openOutputPath(info *core.VideoInfo, format core.VideoFormat) (string, error) {
	ext := format.Container
	if w.cfg.EncodeOptions != nil {
		ext = w.cfg.EncodeOptions.Format
	}
	if ext == "" {
		return "", fmt.Errorf("no output extension resolvable")
	}
	name := ResolveFilename(w.cfg.Output, info, format, ext)
	if w.outDir != "" {
		return w.outDir + string(os.PathSeparator) + name, nil
	}
	return name, nil
}

func (w *Worker) copyRaw(bs stream.ByteStream, sink stream.Sink, ts *timeoutstream.TimeoutStream, meter *progress.Meter, endCh chan struct{}, errCh chan error) {
	for ev := range bs.Events() {
		switch ev.Type {
		case stream.EventData:
			ts.Observe(ev.Data)
			if _, err := sink.Write(ev.Data); err != nil {
				errCh <- err
				return
			}
			if meter != nil {
				meter.Add(int64(len(ev.Data)))
			}
		case stream.EventEnd:
			ts.End()
			close(endCh)
			return
		case stream.EventError:
			errCh <- ev.Err
			return
		}
	}
}

// fail routes every worker-local failure through the single path
// spec.md §4.3 describes: it classifies the kind-appropriate outbound
// message, emits it, and returns a nonzero Result.
func (w *Worker) fail(kind core.Kind, err error, killed bool) core.Result {
	w.setState(StateFailed)

	if killed {
		kind = core.KindCancelled
	}

	msgType := core.MsgError
	if kind == core.KindTimeout {
		msgType = core.MsgTimeout
	}

	wrapped := core.NewError(kind, err)
	w.emitErr(msgType, wrapped)

	return core.Result{Item: w.item, Code: 1, Err: wrapped}
}

func (w *Worker) emit(t core.MessageType, details map[string]any) {
	msg := core.Message{Type: t, Source: w.item, Details: details}
	select {
	case w.events <- msg:
	default:
		w.log.Warn().Str("type", string(t)).Msg("dropping event, subscriber too slow")
	}
}

func (w *Worker) emitErr(t core.MessageType, err error) {
	msg := core.Message{Type: t, Source: w.item, Err: err}
	select {
	case w.events <- msg:
	default:
		w.log.Warn().Str("type", string(t)).Msg("dropping event, subscriber too slow")
	}
}

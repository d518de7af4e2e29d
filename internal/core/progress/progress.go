// Package progress implements the fixed-cadence progress and elapsed
// tickers a DownloadWorker attaches once a format's size is known,
// grounded in other_examples/daleiii-podsync-web's percent/speed/ETA
// computation (pkg/ytdl/ytdl.go parseProgressLine) and paced with
// golang.org/x/time/rate so ticks stay on cadence under load rather
// than drifting the way a bare time.Sleep loop would.
package progress

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ytkit/internal/core"
)

// TickInterval is the cadence of progress events per spec.md §4.3
// step 7.
const TickInterval = 100 * time.Millisecond

// ElapsedInterval is the cadence of elapsed events.
const ElapsedInterval = 1000 * time.Millisecond

// Meter accumulates transferred bytes and computes percentage/ETA/
// speed against a known total size.
type Meter struct {
	mu          sync.Mutex
	total       int64
	transferred int64
	start       time.Time
}

// NewMeter creates a Meter for a stream of the given total size (0 if
// unknown — callers should not attach a Meter in that case, per
// spec.md §4.3 step 6, but Meter itself tolerates it by reporting 0%
// and no ETA).
func NewMeter(total int64) *Meter {
	return &Meter{total: total, start: time.Now()}
}

// Add records newly transferred bytes and returns the current details.
func (m *Meter) Add(n int64) core.ProgressDetails {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transferred += n
	return m.snapshotLocked()
}

// Snapshot returns the current details without recording new bytes.
func (m *Meter) Snapshot() core.ProgressDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Meter) snapshotLocked() core.ProgressDetails {
	elapsed := time.Since(m.start).Seconds()
	speed := 0.0
	if elapsed > 0 {
		speed = float64(m.transferred) / elapsed
	}

	var pct float64
	var eta time.Duration
	if m.total > 0 {
		pct = float64(m.transferred) / float64(m.total) * 100
		if speed > 0 {
			remaining := float64(m.total-m.transferred) / speed
			if remaining > 0 {
				eta = time.Duration(remaining * float64(time.Second))
			}
		}
	}

	return core.ProgressDetails{
		Transferred: m.transferred,
		ETA:         eta,
		Percentage:  pct,
		Speed:       speed,
	}
}

// Ticker emits progress (or elapsed) callbacks on a fixed cadence
// until ctx is cancelled or Stop is called. It is rate-limited rather
// than a bare time.Ticker so bursts of Stop/Start across many
// concurrent workers (bounded by Scheduler.maxconnections) do not
// stampede the runtime's timer heap.
type Ticker struct {
	interval time.Duration
	limiter  *rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
}

// StartTicker launches a background goroutine invoking fn every
// interval until the returned Ticker is stopped or ctx is done.
func StartTicker(ctx context.Context, interval time.Duration, fn func()) *Ticker {
	ctx, cancel := context.WithCancel(ctx)
	t := &Ticker{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		for {
			if err := t.limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			fn()
		}
	}()

	return t
}

// Stop halts the ticker and waits for its goroutine to exit.
func (t *Ticker) Stop() {
	t.cancel()
	<-t.done
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"

	"ytkit/internal/core"
	"ytkit/internal/stream"
)

type fakePlaylistClient struct {
	items []core.PlaylistItem
	err   error
}

func (f *fakePlaylistClient) ValidateID(url string) bool { return true }
func (f *fakePlaylistClient) GetPlaylistID(url string) (string, error) { return url, nil }
func (f *fakePlaylistClient) Resolve(ctx context.Context, id string, opts core.DownloadOptions) ([]core.PlaylistItem, error) {
	return f.items, f.err
}

// failingByteStream immediately reports a stream error, so every
// worker attempt built over it fails — used for retries-exhausted
// coverage.
type failingByteStream struct{ ch chan stream.Event }

func newFailingByteStream() *failingByteStream {
	ch := make(chan stream.Event, 1)
	ch <- stream.Event{Type: stream.EventError, Err: errors.New("boom")}
	close(ch)
	return &failingByteStream{ch: ch}
}

func (f *failingByteStream) Events() <-chan stream.Event { return f.ch }
func (f *failingByteStream) Destroy()                    {}

type countingFailClient struct {
	count int32
}

func (c *countingFailClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	atomic.AddInt32(&c.count, 1)
	return &core.VideoInfo{VideoDetails: core.VideoDetails{Title: url}}, nil
}

func (c *countingFailClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (stream.ByteStream, error) {
	return newFailingByteStream(), nil
}

// succeedingByteStream ends immediately after reporting a tiny known
// size, so workers reach Code 0 quickly.
type succeedingByteStream struct{ ch chan stream.Event }

func newSucceedingByteStream() *succeedingByteStream {
	format := core.VideoFormat{Container: "mp4", ContentLength: 1}
	ch := make(chan stream.Event, 3)
	ch <- stream.Event{Type: stream.EventInfo, Format: &format}
	ch <- stream.Event{Type: stream.EventData, Data: []byte("x")}
	ch <- stream.Event{Type: stream.EventEnd}
	close(ch)
	return &succeedingByteStream{ch: ch}
}

func (s *succeedingByteStream) Events() <-chan stream.Event { return s.ch }
func (s *succeedingByteStream) Destroy()                    {}

type succeedingClient struct{}

func (succeedingClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	return &core.VideoInfo{VideoDetails: core.VideoDetails{Title: url}}, nil
}

func (succeedingClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (stream.ByteStream, error) {
	return newSucceedingByteStream(), nil
}

// failOnceThenSucceedClient fails its first DownloadFromInfo call and
// succeeds on every subsequent one, for retry-then-succeed coverage.
type failOnceThenSucceedClient struct {
	calls int32
}

func (c *failOnceThenSucceedClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	return &core.VideoInfo{VideoDetails: core.VideoDetails{Title: url}}, nil
}

func (c *failOnceThenSucceedClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (stream.ByteStream, error) {
	if atomic.AddInt32(&c.calls, 1) == 1 {
		return newFailingByteStream(), nil
	}
	return newSucceedingByteStream(), nil
}

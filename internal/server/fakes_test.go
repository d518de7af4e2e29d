package server

import (
	"context"
	"errors"

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

type fakeStreamClient struct{}

func (fakeStreamClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	return &core.VideoInfo{VideoDetails: core.VideoDetails{Title: url}}, nil
}

func (fakeStreamClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (stream.ByteStream, error) {
	return newSucceedingByteStream(), nil
}

type fakeSearchClient struct {
	items []core.PlaylistItem
	err   error
}

func (f *fakeSearchClient) Search(ctx context.Context, query string, limit int) ([]core.PlaylistItem, error) {
	return f.items, f.err
}

var errSearchFailed = errors.New("search failed")

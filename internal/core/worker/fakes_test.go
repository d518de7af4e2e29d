package worker

import (
	"context"
	"errors"

	"ytkit/internal/core"
	"ytkit/internal/stream"
)

var errStreamUnavailable = errors.New("stream unavailable")

type fakeByteStream struct {
	events    chan stream.Event
	destroyed bool
}

func newFakeByteStream(events ...stream.Event) *fakeByteStream {
	ch := make(chan stream.Event, len(events)+1)
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &fakeByteStream{events: ch}
}

func (f *fakeByteStream) Events() <-chan stream.Event { return f.events }
func (f *fakeByteStream) Destroy()                    { f.destroyed = true }

type fakeStreamClient struct {
	info      *core.VideoInfo
	infoErr   error
	infoDelay chan struct{} // if non-nil, GetInfo blocks until ctx.Done()

	bs        stream.ByteStream
	streamErr error
}

func (f *fakeStreamClient) GetInfo(ctx context.Context, url string) (*core.VideoInfo, error) {
	if f.infoDelay != nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.info, f.infoErr
}

func (f *fakeStreamClient) DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (stream.ByteStream, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.bs, nil
}

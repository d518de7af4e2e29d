// Package stream defines the external collaborator contracts the
// DownloadWorker consumes — a metadata/stream client and a playlist
// client — mirroring the teacher's internal/platform.StreamExtractor
// interface (Interface Segregation: one small interface per
// responsibility) generalized from "extract one audio URL" to the
// full VideoInfo/VideoFormat/byte-stream shape spec.md §6 requires.
package stream

import (
	"context"
	"io"

	"ytkit/internal/core"
)

// EventType enumerates the ByteStream event variants from spec.md §6.
type EventType string

const (
	EventInfo     EventType = "info"
	EventResponse EventType = "response"
	EventData     EventType = "data"
	EventEnd      EventType = "end"
	EventError    EventType = "error"
)

// Response carries header information observed on stream open, used
// to discover content-length when the chosen format doesn't declare
// one up front.
type Response struct {
	Headers map[string]string
}

// ContentLength extracts a parsed content-length header, if present.
func (r Response) ContentLength() (int64, bool) {
	return parseContentLength(r.Headers)
}

// Event is one message emitted by a ByteStream.
type Event struct {
	Type     EventType
	Info     *core.VideoInfo
	Format   *core.VideoFormat
	Response *Response
	Data     []byte
	Err      error
}

// ByteStream is the Go realization of the "downloadFromInfo" contract
// in spec.md §6: a channel of Events instead of a Node-style
// EventEmitter, closed after the terminal End or Error event.
type ByteStream interface {
	// Events returns the channel of stream events. The channel is
	// closed once a terminal EventEnd or EventError has been
	// delivered.
	Events() <-chan Event

	// Destroy tears the stream down immediately; safe to call after
	// the stream has already ended.
	Destroy()
}

// MetadataClient fetches VideoInfo for a URL.
type MetadataClient interface {
	GetInfo(ctx context.Context, url string) (*core.VideoInfo, error)
}

// StreamClient opens a ByteStream for a previously fetched VideoInfo
// under the given DownloadOptions.
type StreamClient interface {
	MetadataClient

	DownloadFromInfo(ctx context.Context, info *core.VideoInfo, opts core.DownloadOptions) (ByteStream, error)
}

// PlaylistClient resolves a playlist URL/ID to its ordered items.
type PlaylistClient interface {
	ValidateID(url string) bool
	GetPlaylistID(url string) (string, error)
	Resolve(ctx context.Context, id string, opts core.DownloadOptions) ([]core.PlaylistItem, error)
}

// Sink is a write-side destination for raw or transcoded bytes — a
// file, or an encoder's stdin. It is closed by whoever created it,
// except that an encode.Command's Pipe closes it on completion when
// called with end set to true.
type Sink interface {
	io.WriteCloser
}

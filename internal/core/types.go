// Package core holds the data model shared by the playlist download
// scheduler, its per-item workers, and the encoder adapter.
package core

import "time"

// PlaylistItem is one entry of a resolved playlist. It is immutable for
// the lifetime of a download attempt.
type PlaylistItem struct {
	ID     string
	Title  string
	URL    string
	Author Author
	Index  int

	// Extra carries opaque fields the core does not interpret.
	Extra map[string]any
}

// Author identifies the uploader of a PlaylistItem.
type Author struct {
	Name      string
	ChannelID string
}

// Filter is the mutually exclusive basic format filter.
type Filter string

const (
	FilterVideo         Filter = "video"
	FilterVideoOnly     Filter = "videoonly"
	FilterAudio         Filter = "audio"
	FilterAudioOnly     Filter = "audioonly"
	FilterVideoAndAudio Filter = "videoandaudio"
)

// ByteRange is an inclusive byte range request.
type ByteRange struct {
	Start int64
	End   int64
}

// DownloadOptions configures how a single item's format is selected and
// streamed.
type DownloadOptions struct {
	// Quality is either a single itag/quality token or an ordered list
	// of preferences, most preferred first.
	Quality []string

	Range ByteRange

	Filter Filter

	FilterContainer   string
	UnfilterContainer string
	FilterResolution  string
	UnfilterResolution string
	FilterCodecs      string
	UnfilterCodecs    string

	// Begin is an opaque passthrough understood only by the stream
	// client; the core never interprets it. See spec.md §9(b).
	Begin string
}

// EncodeOptions, when non-nil, requests transcoding of the raw byte
// stream through an external encoder before it reaches the sink.
type EncodeOptions struct {
	Format      string
	AudioCodec  string
	VideoCodec  string
	AudioBitrate  int
	VideoBitrate  int
}

// VideoDetails is the subset of VideoInfo the core reads.
type VideoDetails struct {
	Title         string
	Author        Author
	LengthSeconds int
	Description   string
	VideoID       string
}

// VideoInfo is opaque from the stream client's point of view; the core
// only reads the fields below, never constructs one itself.
type VideoInfo struct {
	VideoDetails VideoDetails
	Formats      []VideoFormat
}

// VideoFormat is one entry of VideoInfo.Formats.
type VideoFormat struct {
	Container     string
	QualityLabel  string
	Codecs        string
	Itag          int
	Bitrate       int
	AudioBitrate  int
	ContentLength int64 // 0 means absent/unknown
	IsLive        bool
	IsHLS         bool
	IsDashMPD     bool
}

// Live reports whether the format is a live/unbounded stream per
// spec.md §4.3 step 6.
func (f VideoFormat) Live() bool {
	return f.IsLive || f.IsHLS || f.IsDashMPD
}

// MessageType enumerates every SchedulerMessage/event variant emitted
// by a worker or the scheduler.
type MessageType string

const (
	MsgPlaylistItems    MessageType = "playlistItems"
	MsgVideoInfo        MessageType = "videoInfo"
	MsgInfo             MessageType = "info"
	MsgContentLength    MessageType = "contentLength"
	MsgProgress         MessageType = "progress"
	MsgElapsed          MessageType = "elapsed"
	MsgEnd              MessageType = "end"
	MsgTimeout          MessageType = "timeout"
	MsgRetry            MessageType = "retry"
	MsgOnline           MessageType = "online"
	MsgExit             MessageType = "exit"
	MsgWorkerTerminated MessageType = "workerTerminated"
	MsgError            MessageType = "error"
)

// ProgressDetails is the payload of a MsgProgress message.
type ProgressDetails struct {
	Transferred int64
	ETA         time.Duration
	Percentage  float64
	Speed       float64 // bytes/sec
}

// Message is the Go realization of spec.md's SchedulerMessage: a
// tagged union, one variant per Type, carrying Source and an optional
// error plus a loosely typed Details bag for the handful of fields
// that differ per message type.
type Message struct {
	Type    MessageType
	Source  PlaylistItem
	Details map[string]any
	Err     error
}

// Result is the Go realization of spec.md's SchedulerResult: exactly
// one is produced per input item by Scheduler.Download.
type Result struct {
	Item PlaylistItem
	Code int
	Err  error
}

// RetryState is scheduler-private bookkeeping for one item's retry
// budget.
type RetryState struct {
	Item PlaylistItem
	Left int
}

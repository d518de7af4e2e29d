// Package encode defines the transcoder contract a DownloadWorker uses
// when EncodeOptions are set, and a concrete FFmpeg-backed
// implementation, generalizing the teacher's internal/encoder package
// (a fixed Discord-opus pipeline) into the open-ended format/codec
// negotiation spec.md §4.2/§6 require.
package encode

import "context"

// FormatCapability describes whether a container can be used as a mux
// (output) or demux (input) target, mirroring ffprobe's -formats
// columns.
type FormatCapability struct {
	CanMux   bool
	CanDemux bool
}

// CodecCapability describes whether a codec can be used to encode or
// decode, mirroring ffprobe's -codecs columns.
type CodecCapability struct {
	CanEncode bool
	CanDecode bool
}

// Encoder is the capability-probe and command-builder contract the
// EncoderAdapter validates against and drives, per spec.md §6.
type Encoder interface {
	// GetAvailableFormats reports every container the underlying
	// transcoder knows about.
	GetAvailableFormats(ctx context.Context) (map[string]FormatCapability, error)

	// GetAvailableCodecs reports every codec the underlying transcoder
	// knows about.
	GetAvailableCodecs(ctx context.Context) (map[string]CodecCapability, error)

	// Command starts building a new transcode invocation.
	Command() Command
}

package encode

import (
	"context"
	"fmt"

	"ytkit/internal/core"
	"ytkit/internal/stream"
)

// Adapter is the Go realization of spec.md §4.2's EncoderAdapter: it
// validates requested EncodeOptions against an Encoder's capability
// probe, then wires a worker's byte stream through the encoder into a
// caller-supplied sink.
type Adapter struct {
	encoder Encoder
}

// NewAdapter builds an Adapter over the given Encoder.
func NewAdapter(encoder Encoder) *Adapter {
	return &Adapter{encoder: encoder}
}

// Validate reports whether opts.Format reports canMux and every named
// codec reports canEncode, per spec.md §4.2's validate() contract.
func (a *Adapter) Validate(ctx context.Context, opts core.EncodeOptions) (bool, error) {
	formats, err := a.encoder.GetAvailableFormats(ctx)
	if err != nil {
		return false, core.NewError(core.KindEncoder, err)
	}
	formatCap, ok := formats[opts.Format]
	if !ok || !formatCap.CanMux {
		return false, nil
	}

	codecs, err := a.encoder.GetAvailableCodecs(ctx)
	if err != nil {
		return false, core.NewError(core.KindEncoder, err)
	}
	for _, codec := range []string{opts.AudioCodec, opts.VideoCodec} {
		if codec == "" {
			continue
		}
		cap, ok := codecs[codec]
		if !ok || !cap.CanEncode {
			return false, nil
		}
	}
	return true, nil
}

// Create validates opts and, if valid, wires input through the
// encoder into sink, attaching the metadata tags spec.md §4.2 step 4
// names. It returns InvalidEncodeOptions (kind EncoderError) if
// validation fails.
func (a *Adapter) Create(ctx context.Context, input stream.ByteStream, sink stream.Sink, opts core.EncodeOptions, details core.VideoDetails, format core.VideoFormat) (Run, error) {
	ok, err := a.Validate(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewError(core.KindEncoder, fmt.Errorf("InvalidEncodeOptions: format %q or requested codecs unsupported", opts.Format))
	}

	cmd := a.encoder.Command().Format(opts.Format)

	if opts.AudioCodec != "" {
		cmd = cmd.AudioCodec(opts.AudioCodec)
	}
	if opts.VideoCodec != "" {
		cmd = cmd.VideoCodec(opts.VideoCodec)
	}

	// Bitrate precedence per spec.md §4.2 step 2: explicit option,
	// then metadata-derived, then let the transcoder choose.
	audioBitrate := opts.AudioBitrate
	if audioBitrate == 0 {
		audioBitrate = format.AudioBitrate
	}
	videoBitrate := opts.VideoBitrate
	if videoBitrate == 0 {
		videoBitrate = format.Bitrate
	}
	if audioBitrate > 0 {
		cmd = cmd.AudioBitrate(audioBitrate)
	}
	if videoBitrate > 0 {
		cmd = cmd.VideoBitrate(videoBitrate)
	}

	cmd = cmd.Metadata("title", details.Title).
		Metadata("author", details.Author.Name).
		Metadata("artist", details.Author.Name).
		Metadata("description", details.Description).
		Metadata("comment", details.Description).
		Metadata("episode_id", details.VideoID).
		Metadata("network", "YouTube")

	return cmd.Pipe(input, sink, true)
}

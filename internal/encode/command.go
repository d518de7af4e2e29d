package encode

import "ytkit/internal/stream"

// Command is the fluent builder spec.md §6 names: audioCodec,
// videoCodec, audioBitrate, videoBitrate, format, outputOptions,
// metadata tags, and a terminal Pipe(src, sink) that supplies the
// input stream and launches the process.
type Command interface {
	AudioCodec(codec string) Command
	VideoCodec(codec string) Command
	AudioBitrate(bps int) Command
	VideoBitrate(bps int) Command
	Format(format string) Command
	OutputOptions(opts ...string) Command
	Metadata(key, value string) Command

	// Pipe wires src as the command's stdin and the command's stdout
	// into sink, starts the process, and returns a Run handle. If
	// end is true, sink is closed when the pipe completes — the
	// close-on-completion semantics spec.md §4.2 step 5 describes.
	Pipe(src stream.ByteStream, sink stream.Sink, end bool) (Run, error)
}

// Run is a started transcode invocation.
type Run interface {
	// Err delivers at most one error, then closes.
	Err() <-chan error
	// End closes when the pipe has finished (success or failure).
	End() <-chan struct{}
}

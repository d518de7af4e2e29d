package encode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"ytkit/internal/core"
	"ytkit/internal/stream"
)

// FFmpegEncoder is a concrete Encoder that shells out to ffmpeg for
// transcoding and to ffmpeg -formats/-codecs for capability probing,
// grounded in the teacher's internal/encoder.FFmpegPipeline (process
// lifecycle, stdout/stderr piping) generalized from a fixed
// Discord-opus target to the open format/codec selection spec.md §6
// requires.
type FFmpegEncoder struct {
	binary string
}

// NewFFmpegEncoder creates an Encoder that invokes the named ffmpeg
// binary ("ffmpeg" when empty).
func NewFFmpegEncoder(binary string) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{binary: binary}
}

var formatLineRE = regexp.MustCompile(`^\s*([D ])([E ])\s+(\S+)`)

// GetAvailableFormats parses `ffmpeg -formats`.
func (e *FFmpegEncoder) GetAvailableFormats(ctx context.Context) (map[string]FormatCapability, error) {
	out, err := exec.CommandContext(ctx, e.binary, "-hide_banner", "-formats").Output()
	if err != nil {
		return nil, fmt.Errorf("probe ffmpeg formats: %w", err)
	}

	caps := map[string]FormatCapability{}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		m := formatLineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		for _, name := range strings.Split(m[3], ",") {
			caps[name] = FormatCapability{CanDemux: m[1] == "D", CanMux: m[2] == "E"}
		}
	}
	return caps, nil
}

var codecLineRE = regexp.MustCompile(`^\s*([D.])([E.])[VAS.][I.][L.][S.]\s+(\S+)`)

// GetAvailableCodecs parses `ffmpeg -codecs`.
func (e *FFmpegEncoder) GetAvailableCodecs(ctx context.Context) (map[string]CodecCapability, error) {
	out, err := exec.CommandContext(ctx, e.binary, "-hide_banner", "-codecs").Output()
	if err != nil {
		return nil, fmt.Errorf("probe ffmpeg codecs: %w", err)
	}

	caps := map[string]CodecCapability{}
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		m := codecLineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		caps[m[3]] = CodecCapability{CanDecode: m[1] == "D", CanEncode: m[2] == "E"}
	}
	return caps, nil
}

// Command starts building a new ffmpeg invocation.
func (e *FFmpegEncoder) Command() Command {
	return &ffmpegCommand{binary: e.binary}
}

type ffmpegCommand struct {
	binary       string
	audioCodec   string
	videoCodec   string
	audioBitrate int
	videoBitrate int
	format       string
	outputOpts   []string
	metadata     map[string]string
}

func (c *ffmpegCommand) AudioCodec(codec string) Command { c.audioCodec = codec; return c }
func (c *ffmpegCommand) VideoCodec(codec string) Command { c.videoCodec = codec; return c }
func (c *ffmpegCommand) AudioBitrate(bps int) Command    { c.audioBitrate = bps; return c }
func (c *ffmpegCommand) VideoBitrate(bps int) Command    { c.videoBitrate = bps; return c }
func (c *ffmpegCommand) Format(format string) Command    { c.format = format; return c }

func (c *ffmpegCommand) OutputOptions(opts ...string) Command {
	c.outputOpts = append(c.outputOpts, opts...)
	return c
}

func (c *ffmpegCommand) Metadata(key, value string) Command {
	if c.metadata == nil {
		c.metadata = map[string]string{}
	}
	c.metadata[key] = value
	return c
}

func (c *ffmpegCommand) buildArgs() []string {
	args := []string{"-hide_banner", "-loglevel", "warning", "-i", "pipe:0"}

	if c.audioCodec != "" {
		args = append(args, "-c:a", c.audioCodec)
	}
	if c.videoCodec != "" {
		args = append(args, "-c:v", c.videoCodec)
	}
	if c.audioBitrate > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%d", c.audioBitrate))
	}
	if c.videoBitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%d", c.videoBitrate))
	}
	for key, value := range c.metadata {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
	}
	args = append(args, c.outputOpts...)
	if c.format != "" {
		args = append(args, "-f", c.format)
	}
	return append(args, "pipe:1")
}

// Pipe starts ffmpeg, pumps src's data events into its stdin, and
// copies its stdout into sink, closing sink on completion when end is
// true — the behavior spec.md §4.2 step 5 requires.
func (c *ffmpegCommand) Pipe(src stream.ByteStream, sink stream.Sink, end bool) (Run, error) {
	binary := c.binary
	if binary == "" {
		binary = "ffmpeg"
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binary, c.buildArgs()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, core.NewError(core.KindEncoder, fmt.Errorf("start ffmpeg: %w", err))
	}

	r := &ffmpegRun{
		cancel: cancel,
		errCh:  make(chan error, 1),
		endCh:  make(chan struct{}),
	}

	go r.pumpInput(src, stdin)
	go r.drainStderr(stderr)
	go r.pumpOutput(cmd, stdout, sink, end)

	return r, nil
}

type ffmpegRun struct {
	cancel context.CancelFunc
	errCh  chan error
	endCh  chan struct{}
}

func (r *ffmpegRun) Err() <-chan error    { return r.errCh }
func (r *ffmpegRun) End() <-chan struct{} { return r.endCh }

func (r *ffmpegRun) pumpInput(src stream.ByteStream, stdin io.WriteCloser) {
	defer stdin.Close()
	for ev := range src.Events() {
		switch ev.Type {
		case stream.EventData:
			if _, err := stdin.Write(ev.Data); err != nil {
				return
			}
		case stream.EventEnd, stream.EventError:
			return
		}
	}
}

func (r *ffmpegRun) drainStderr(stderr io.ReadCloser) {
	if stderr == nil {
		return
	}
	defer stderr.Close()
	io.Copy(io.Discard, stderr)
}

func (r *ffmpegRun) pumpOutput(cmd *exec.Cmd, stdout io.ReadCloser, sink stream.Sink, end bool) {
	defer close(r.endCh)
	defer r.cancel()

	_, copyErr := io.Copy(sink, stdout)
	waitErr := cmd.Wait()

	if end {
		sink.Close()
	}

	if copyErr != nil {
		r.errCh <- core.NewError(core.KindEncoder, copyErr)
		close(r.errCh)
		return
	}
	if waitErr != nil {
		r.errCh <- core.NewError(core.KindEncoder, waitErr)
	}
	close(r.errCh)
}

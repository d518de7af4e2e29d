// Package cmd parses the CLI surface spec.md §6 names, generalizing
// the teacher's flat -p/-url flag set into three subcommands, each
// bound to its own flag.FlagSet the way ParseArgs bound a single set.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"ytkit/internal/core"
)

// Command identifies which subcommand was invoked.
type Command string

const (
	CommandDownload         Command = "download"
	CommandDownloadPlaylist Command = "download:playlist"
	CommandSearch           Command = "search"
)

// Config holds a single parsed CLI invocation.
type Config struct {
	Command Command

	URL   string
	Query string
	Limit int

	Quality            string
	Filter             string
	FilterContainer    string
	UnfilterContainer  string
	FilterResolution   string
	UnfilterResolution string
	FilterCodecs       string
	UnfilterCodecs     string
	Begin              string
	URLOnly            bool

	Output     string
	JSON       bool
	SafeSearch bool

	MaxConnections int
	Retries        int
	TimeoutSeconds int

	Format     string
	AudioCodec string
	VideoCodec string
}

// ParseArgs parses args (normally os.Args[1:]) into a Config,
// dispatching on the first positional argument.
func ParseArgs(args []string) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("a command is required: download, download:playlist, or search")
	}

	cmdName := Command(args[0])
	rest := args[1:]

	switch cmdName {
	case CommandDownload, CommandDownloadPlaylist:
		return parseDownload(cmdName, rest)
	case CommandSearch:
		return parseSearch(rest)
	default:
		return nil, fmt.Errorf("unknown command: %s", cmdName)
	}
}

func parseDownload(cmdName Command, args []string) (*Config, error) {
	fs := flag.NewFlagSet(string(cmdName), flag.ContinueOnError)
	cfg := &Config{Command: cmdName}

	fs.StringVar(&cfg.URL, "url", "", "Video or playlist URL")
	fs.StringVar(&cfg.Quality, "quality", "", "Quality/itag preference")
	fs.StringVar(&cfg.Filter, "filter", "", "Basic filter: video, videoonly, audio, audioonly, videoandaudio")
	fs.StringVar(&cfg.FilterContainer, "filter-container", "", "Container regex filter")
	fs.StringVar(&cfg.UnfilterContainer, "unfilter-container", "", "Container regex exclude filter")
	fs.StringVar(&cfg.FilterResolution, "filter-resolution", "", "Resolution regex filter")
	fs.StringVar(&cfg.UnfilterResolution, "unfilter-resolution", "", "Resolution regex exclude filter")
	fs.StringVar(&cfg.FilterCodecs, "filter-codecs", "", "Codecs regex filter")
	fs.StringVar(&cfg.UnfilterCodecs, "unfilter-codecs", "", "Codecs regex exclude filter")
	fs.StringVar(&cfg.Begin, "begin", "", "Opaque stream-client passthrough, e.g. a seek offset")
	fs.BoolVar(&cfg.URLOnly, "urlonly", false, "Print the resolved source URL instead of downloading")
	fs.StringVar(&cfg.Output, "output", "", "Output filename template")
	fs.BoolVar(&cfg.JSON, "json", false, "Emit a JSON result record instead of plain text")
	fs.IntVar(&cfg.MaxConnections, "maxconnections", 0, "Bounded worker pool size (playlist only)")
	fs.IntVar(&cfg.Retries, "retries", 0, "Per-item retry budget")
	fs.IntVar(&cfg.TimeoutSeconds, "timeout", 0, "Per-item inactivity timeout in seconds")
	fs.StringVar(&cfg.Format, "format", "", "Transcode output format, e.g. mp3")
	fs.StringVar(&cfg.AudioCodec, "audiocodec", "", "Transcode audio codec")
	fs.StringVar(&cfg.VideoCodec, "videocodec", "", "Transcode video codec")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.URL == "" && fs.NArg() > 0 {
		cfg.URL = fs.Arg(0)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("-url is required")
	}
	return cfg, nil
}

func parseSearch(args []string) (*Config, error) {
	fs := flag.NewFlagSet(string(CommandSearch), flag.ContinueOnError)
	cfg := &Config{Command: CommandSearch, Limit: 10}

	fs.StringVar(&cfg.Query, "query", "", "Search query text")
	fs.IntVar(&cfg.Limit, "limit", 10, "Maximum number of results")
	fs.BoolVar(&cfg.JSON, "json", false, "Emit JSON result records instead of plain text")
	fs.BoolVar(&cfg.SafeSearch, "safe-search", false, "Enable safe search")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Query == "" && fs.NArg() > 0 {
		cfg.Query = fs.Arg(0)
	}
	if cfg.Query == "" {
		return nil, fmt.Errorf("-query is required")
	}
	return cfg, nil
}

// DownloadOptions projects the filter/quality/begin flags into a
// core.DownloadOptions.
func (c *Config) DownloadOptions() core.DownloadOptions {
	opts := core.DownloadOptions{
		Filter:             core.Filter(c.Filter),
		FilterContainer:    c.FilterContainer,
		UnfilterContainer:  c.UnfilterContainer,
		FilterResolution:   c.FilterResolution,
		UnfilterResolution: c.UnfilterResolution,
		FilterCodecs:       c.FilterCodecs,
		UnfilterCodecs:     c.UnfilterCodecs,
		Begin:              c.Begin,
	}
	if c.Quality != "" {
		opts.Quality = []string{c.Quality}
	}
	return opts
}

// PrintUsageAndExit prints usage information and exits with code 1.
func PrintUsageAndExit() {
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("\nUsage:")
	fmt.Println("  ytkit download -url <url> [options]")
	fmt.Println("  ytkit download:playlist -url <playlist-url> [options]")
	fmt.Println("  ytkit search -query <text> [-limit N] [-json]")
	fmt.Println("\nCommon download options:")
	fmt.Println("  -quality, -filter, -filter-container, -unfilter-container")
	fmt.Println("  -filter-resolution, -unfilter-resolution, -filter-codecs, -unfilter-codecs")
	fmt.Println("  -begin, -urlonly, -output, -json")
	fmt.Println("  -maxconnections, -retries, -timeout")
	fmt.Println("  -format, -audiocodec, -videocodec")
	fmt.Println()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ytkit/cmd"
	"ytkit/internal/config"
	"ytkit/internal/core"
	"ytkit/internal/core/scheduler"
	"ytkit/internal/encode"
	"ytkit/internal/logging"
	"ytkit/internal/stream"
	"ytkit/pkg/deps"
)

func main() {
	log := logging.New()

	cliCfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Println("[ERROR]", err)
		cmd.PrintUsageAndExit()
	}

	checker := deps.NewChecker("yt-dlp", "ffmpeg")
	if err := checker.CheckAndPrint(); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := checker.CheckFFmpeg(ctx); err != nil {
		fmt.Println("[ERROR] ffmpeg is present but not usable:", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	envCfg := config.FromEnv()
	ytClient := stream.NewYtDlpClient(envCfg.Cookies, &http.Client{}, log)
	adapter := encode.NewAdapter(encode.NewFFmpegEncoder(""))

	switch cliCfg.Command {
	case cmd.CommandSearch:
		runSearch(ctx, ytClient, cliCfg)
	case cmd.CommandDownload:
		runDownload(ctx, ytClient, adapter, envCfg, cliCfg, log, newSingleItemPlaylist(cliCfg.URL))
	case cmd.CommandDownloadPlaylist:
		runDownload(ctx, ytClient, adapter, envCfg, cliCfg, log, ytClient)
	}
}

func runSearch(ctx context.Context, client *stream.YtDlpClient, cliCfg *cmd.Config) {
	items, err := client.Search(ctx, cliCfg.Query, cliCfg.Limit)
	if err != nil {
		printError(cliCfg.JSON, "search", err)
		os.Exit(1)
	}
	if cliCfg.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"status":  "ok",
			"results": items,
		})
		return
	}
	for _, item := range items {
		fmt.Printf("%s\t%s\t%s\n", item.ID, item.Title, item.URL)
	}
}

func runDownload(ctx context.Context, streamer stream.StreamClient, adapter *encode.Adapter, envCfg config.Config, cliCfg *cmd.Config, log zerolog.Logger, playlist stream.PlaylistClient) {
	opts := cliCfg.DownloadOptions()

	id, err := playlist.GetPlaylistID(cliCfg.URL)
	if err != nil {
		printError(cliCfg.JSON, "resolve", err)
		os.Exit(1)
	}

	maxConnections := cliCfg.MaxConnections
	if maxConnections <= 0 {
		maxConnections = envCfg.MaxConnections
	}
	retries := cliCfg.Retries
	if retries <= 0 {
		retries = envCfg.Retries
	}
	timeout := envCfg.Timeout
	if cliCfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cliCfg.TimeoutSeconds) * time.Second
	}

	var encOpts *core.EncodeOptions
	if cliCfg.Format != "" {
		encOpts = &core.EncodeOptions{
			Format:     cliCfg.Format,
			AudioCodec: cliCfg.AudioCodec,
			VideoCodec: cliCfg.VideoCodec,
		}
	}

	schedCfg := scheduler.Config{
		PlaylistID:      id,
		PlaylistOptions: opts,
		Output:          cliCfg.Output,
		MaxConnections:  maxConnections,
		Retries:         retries,
		Timeout:         timeout,
		EncoderOptions:  encOpts,
		OutDir:          ".",
	}

	s := scheduler.New(schedCfg, playlist, streamer, streamer, adapter, log)

	go func() {
		for msg := range s.Events() {
			logEvent(log, msg)
		}
	}()

	results, err := s.Download(ctx)
	if err != nil {
		printError(cliCfg.JSON, "download", err)
		os.Exit(1)
	}
	printResults(cliCfg.JSON, results)
}

func logEvent(log zerolog.Logger, msg core.Message) {
	ev := log.Info()
	if msg.Err != nil {
		ev = log.Error().Err(msg.Err)
	}
	ev.Str("type", string(msg.Type)).Str("item_id", msg.Source.ID).Msg("scheduler event")
}

func printResults(asJSON bool, results []core.Result) {
	if asJSON {
		type resultDTO struct {
			ItemID string `json:"item_id"`
			Title  string `json:"title"`
			Code   int    `json:"code"`
			Error  string `json:"error,omitempty"`
		}
		dtos := make([]resultDTO, 0, len(results))
		for _, r := range results {
			dto := resultDTO{ItemID: r.Item.ID, Title: r.Item.Title, Code: r.Code}
			if r.Err != nil {
				dto.Error = r.Err.Error()
			}
			dtos = append(dtos, dto)
		}
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"status": "ok", "results": dtos})
		return
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("ERROR %s: %s\n", r.Item.ID, r.Err)
			continue
		}
		fmt.Printf("OK %s: %s\n", r.Item.ID, r.Item.Title)
	}
}

func printError(asJSON bool, commandID string, err error) {
	if asJSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"status": "error", "error": err.Error()})
		return
	}
	fmt.Printf("ERROR %s: %s\n", commandID, err)
}

// singleItemPlaylist adapts a single video URL into a one-item
// stream.PlaylistClient so the "download" subcommand can reuse the
// same bounded scheduler as "download:playlist".
type singleItemPlaylist struct {
	url string
}

func newSingleItemPlaylist(url string) *singleItemPlaylist {
	return &singleItemPlaylist{url: url}
}

func (p *singleItemPlaylist) ValidateID(id string) bool { return id == p.url }

func (p *singleItemPlaylist) GetPlaylistID(url string) (string, error) {
	return url, nil
}

func (p *singleItemPlaylist) Resolve(ctx context.Context, id string, opts core.DownloadOptions) ([]core.PlaylistItem, error) {
	return []core.PlaylistItem{{ID: id, URL: id}}, nil
}

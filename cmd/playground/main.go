// Package main provides the entry point for the download control
// server: an HTTP+WebSocket surface over the scheduler, grounded in
// the teacher's own cmd/playground entrypoint (env-driven port,
// dependency check, signal-cancelled context, background router.Run).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ytkit/internal/config"
	"ytkit/internal/encode"
	"ytkit/internal/logging"
	"ytkit/internal/server"
	"ytkit/internal/stream"
	"ytkit/pkg/deps"
)

func main() {
	log := logging.New()

	httpPort := os.Getenv("GO_API_PORT")
	if httpPort == "" {
		httpPort = "8180"
	}
	httpPort = ":" + httpPort

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
		log.Info().Msg("shutting down")
		cancel()
	}()

	envCfg := config.FromEnv()
	ytClient := stream.NewYtDlpClient(envCfg.Cookies, &http.Client{}, log)
	adapter := encode.NewAdapter(encode.NewFFmpegEncoder(""))

	outDir := os.Getenv("YT_OUTPUT_DIR")
	if outDir == "" {
		outDir = "."
	}

	hub := server.NewWSHub(log)
	defer hub.Close()

	jobs := server.NewJobManager(ctx, ytClient, ytClient, ytClient, adapter, hub, outDir, log)
	api := server.NewAPI(jobs, hub, ytClient, log)
	router := server.SetupRouter(api, hub)

	srv := &http.Server{Addr: httpPort, Handler: router}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info().Str("addr", httpPort).Msg("download control server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

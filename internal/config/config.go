// Package config loads the scheduler's runtime defaults and the yt-dlp
// cookie configuration from environment variables, generalizing the
// teacher's youtube.LoadConfigFromEnv (a single package-level var
// populated from YT_COOKIES_BROWSER/YT_COOKIES_FILE) into a
// constructor returning an immutable value; main.go layers the flags
// parsed by cmd.ParseArgs (-maxconnections, -retries, -timeout) on top.
package config

import (
	"os"
	"strconv"
	"time"

	"ytkit/internal/core/scheduler"
	"ytkit/internal/stream"
)

// Config is the scheduler's environment-derived configuration.
type Config struct {
	MaxConnections int
	Retries        int
	Timeout        time.Duration
	Cookies        stream.CookieConfig
}

// FromEnv reads YT_MAX_CONNECTIONS, YT_RETRIES, YT_TIMEOUT_SECONDS
// (falling back to the scheduler's own defaults when unset, unparsable
// or not positive) plus the teacher's YT_COOKIES_BROWSER/YT_COOKIES_FILE.
func FromEnv() Config {
	return Config{
		MaxConnections: intEnv("YT_MAX_CONNECTIONS", scheduler.DefaultMaxConnections),
		Retries:        intEnv("YT_RETRIES", scheduler.DefaultRetries),
		Timeout:        durationEnv("YT_TIMEOUT_SECONDS", scheduler.DefaultTimeout),
		Cookies:        stream.CookieConfigFromEnv(),
	}
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Package logging wires up the process-wide zerolog.Logger, grounded
// in ManuGH-xg2g's internal/api/logging.go (ConsoleWriter for dev,
// LOG_LEVEL env override), replacing the teacher's ad hoc
// fmt.Printf("[INFO] ...") calls throughout session.go/ffmpeg.go with
// structured, leveled output.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. JSON output is used when LOG_FORMAT=json
// (production), otherwise a human-readable console writer (dev).
func New() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if lvlStr := os.Getenv("LOG_LEVEL"); lvlStr != "" {
		if lvl, err := zerolog.ParseLevel(lvlStr); err == nil {
			level = lvl
		}
	}

	if os.Getenv("LOG_FORMAT") == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

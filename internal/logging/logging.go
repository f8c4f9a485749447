// Package logging builds the zerolog loggers used across swervesim.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Level  string
	Dir    string // when set, also log to a file in Dir
	Pretty bool
	Name   string
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back
// to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED", "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// FilePath names the log file for a session started at start.
func FilePath(dir, name string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.log", name, start.UTC().Format("20060102_150405")))
}

// New writes to w, plus a log file when opts.Dir is set. The returned
// closer releases the file and is never nil.
func New(w io.Writer, opts Options) (zerolog.Logger, io.Closer, error) {
	var console io.Writer = w
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	closer := io.Closer(nopCloser{})
	writers := []io.Writer{console}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("creating log dir: %w", err)
		}
		name := opts.Name
		if name == "" {
			name = "swervesim"
		}
		path := FilePath(opts.Dir, name, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("opening log file: %w", err)
		}
		closer = f
		writers = append(writers, zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true})
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()
	return logger, closer, nil
}

// Sampled lets a burst of 5 events through per 10 seconds, then 1 in 100.
// Used for per-tick warnings that would otherwise flood at 200 Hz.
func Sampled(l zerolog.Logger) zerolog.Logger {
	return l.Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

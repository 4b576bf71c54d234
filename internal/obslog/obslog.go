// Package obslog builds the process-wide structured logger, the way
// the teacher's cmd/server/main.go installs a JSON slog.Handler as
// the process default, extended with optional rotating file output
// via gopkg.in/natefinch/lumberjack.v2 the way
// ruaan-deysel-unraid-management-agent pairs its logger with a
// lumberjack.Logger sink so long-running deployments don't depend on
// external logrotate.
package obslog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	// Level is the minimum emitted slog level.
	Level slog.Level

	// FilePath, if non-empty, additionally writes logs to a rotating
	// file at this path.
	FilePath string

	// MaxSizeMB is the rotation threshold in megabytes (lumberjack
	// default semantics apply if zero: 100MB).
	MaxSizeMB int

	// MaxBackups bounds how many rotated files are retained.
	MaxBackups int

	// MaxAgeDays bounds how long rotated files are retained.
	MaxAgeDays int

	// Stdio replaces the stdout sink with stderr, for the stdio
	// transport where stdout is reserved for the JSON-RPC wire
	// protocol; logs in that mode go to stderr and, if FilePath is
	// set, to the file sink as well.
	Stdio bool
}

// New builds a *slog.Logger writing JSON records to the configured
// sinks and installs it as slog's process default, returning it for
// callers that want an explicit reference.
func New(opts Options) *slog.Logger {
	var writers []io.Writer

	if opts.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		})
	}

	if opts.Stdio {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, os.Stdout)
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = io.MultiWriter(writers...)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level}))
	slog.SetDefault(logger)
	return logger
}

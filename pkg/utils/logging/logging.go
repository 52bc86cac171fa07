package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
)

var (
	mu            sync.Mutex
	defaultLogger = newConsoleLogger(os.Stderr, slog.LevelInfo)
)

// Default returns the process-wide logger.
func Default() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

type ctxLoggerKey struct{}

// With binds a logger to the context.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From returns the logger bound to the context, falling back to Default.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// redactor hides credential material in log output. Password columns flow
// through the progress tracker, so field-level masking is not optional.
func redactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName("Password"),
		masq.WithFieldPrefix("password"),
	)
}

func newConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithReplaceAttr(redactor()),
	)
	return slog.New(handler)
}

func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactor(),
	}))
}

// Configure builds the default logger from CLI settings and installs it.
// The returned closer releases the log output when it is a file.
func Configure(level, format, output string) (func(), error) {
	logLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	closer := func() {}
	switch output {
	case "", "stderr", "-":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", output))
		}
		w = f
		closer = func() {
			_ = f.Close()
		}
	}

	var logger *slog.Logger
	switch format {
	case "", "console":
		logger = newConsoleLogger(w, logLevel)
	case "json":
		logger = newJSONLogger(w, logLevel)
	default:
		closer()
		return nil, goerr.New("invalid log format", goerr.V("format", format))
	}

	SetDefault(logger)
	return closer, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, goerr.New("invalid log level", goerr.V("level", level))
	}
}

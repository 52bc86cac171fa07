package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// Logger holds CLI flags for logger configuration
type Logger struct {
	level  string
	format string
	output string
	debug  bool
}

// Flags returns CLI flags for logger configuration
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Shorthand for --log-level debug",
			Category:    "Logging",
			Sources:     cli.EnvVars("USERSYNC_DEBUG"),
			Destination: &l.debug,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("USERSYNC_LOG_LEVEL"),
			Destination: &l.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console or json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("USERSYNC_LOG_FORMAT"),
			Destination: &l.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output (stdout, stderr or a file path)",
			Category:    "Logging",
			Value:       "stderr",
			Sources:     cli.EnvVars("USERSYNC_LOG_OUTPUT"),
			Destination: &l.output,
		},
	}
}

// Configure builds the process logger and installs it as default. The
// returned closer flushes and releases the output.
func (l *Logger) Configure() (func(), error) {
	level := l.level
	if l.debug {
		level = "debug"
	}
	return logging.Configure(level, l.format, l.output)
}

func (l Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.level),
		slog.String("format", l.format),
		slog.String("output", l.output),
	)
}

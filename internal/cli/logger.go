package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nixpr/nixpr/internal/config"
	"github.com/nixpr/nixpr/internal/constants"
	"github.com/nixpr/nixpr/internal/logging"
)

// logFileWriter holds the log file writer for cleanup purposes.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// InitLogger creates and configures a zerolog.Logger based on verbosity flags.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Output format is determined by the terminal:
//   - TTY with colors enabled: Console writer with timestamps
//   - Non-TTY or NO_COLOR set: JSON output to stderr
//
// The logger also writes to ~/.nixpr/logs/nixpr.log with rotation enabled.
// If the log file cannot be created, the logger continues with console-only
// output.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	level := selectLevel(verbose, quiet)
	console := selectOutput()

	var writer io.Writer = console
	if fileWriter, err := createLogFileWriter(); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(console, fileWriter)
	}

	logger := zerolog.New(writer).
		Level(level).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates a zerolog.Logger with a custom writer.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).
		Level(selectLevel(verbose, quiet)).
		Hook(logging.NewSensitiveDataHook()).
		With().Timestamp().Logger()
	setGlobalLogger(logger)
	return logger
}

// setGlobalLogger configures the global zerolog logger to match the CLI
// logger, so code using the zerolog/log package gets the same formatting.
func setGlobalLogger(cliLogger zerolog.Logger) {
	log.Logger = cliLogger
}

// CloseLogFile closes the global log file writer if it was opened.
// This should be called during application shutdown.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel determines the appropriate log level based on flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput determines the appropriate output writer based on
// terminal capabilities and environment settings.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// filteringWriteCloser wraps a WriteCloser with sensitive data filtering.
type filteringWriteCloser struct {
	filter *logging.FilteringWriter
	closer io.Closer
}

func (fwc *filteringWriteCloser) Write(p []byte) (n int, err error) {
	return fwc.filter.Write(p)
}

func (fwc *filteringWriteCloser) Close() error {
	return fwc.closer.Close()
}

// createLogFileWriter creates a rotating file writer for the global CLI
// log, wrapped with a filtering writer so credentials never reach disk.
func createLogFileWriter() (io.WriteCloser, error) {
	logPath, err := config.LogFilePath()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}

	return &filteringWriteCloser{
		filter: logging.NewFilteringWriter(lj),
		closer: lj,
	}, nil
}

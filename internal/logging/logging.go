// Package logging provides the process-wide zerolog logger and the error
// sink used by background workers.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "wfstui.log"

var (
	// Log is the global logger instance.
	Log = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()

	mu sync.RWMutex

	// fileWriter is the rotating file output, nil when file logging is off.
	fileWriter *lumberjack.Logger

	// fileOnlyLog writes to the file only and is used while the TUI owns the
	// terminal.
	fileOnlyLog zerolog.Logger

	interactive bool
)

// FileConfig controls the rotating log file.
type FileConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

func (c FileConfig) maxSize() int {
	if c.MaxSizeMB <= 0 {
		return 10
	}
	return c.MaxSizeMB
}

func (c FileConfig) maxAge() int {
	if c.MaxAgeDays <= 0 {
		return 14
	}
	return c.MaxAgeDays
}

func (c FileConfig) maxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Init configures console-only logging on stderr.
func Init(debug bool) {
	InitWriter(os.Stderr, debug)
}

// InitWriter configures console logging on out.
func InitWriter(out io.Writer, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	Log = zerolog.New(consoleWriter(out)).Level(level(debug)).With().Timestamp().Logger()
}

// InitWithFile configures console logging plus a rotating JSON log file in
// cfg.Dir. An empty Dir behaves like Init.
func InitWithFile(debug bool, cfg FileConfig) error {
	if cfg.Dir == "" {
		Init(debug)
		return nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fw := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, logFileName),
		MaxSize:    cfg.maxSize(),
		MaxAge:     cfg.maxAge(),
		MaxBackups: cfg.maxBackups(),
		LocalTime:  true,
	}

	mu.Lock()
	defer mu.Unlock()
	fileWriter = fw
	fileOnlyLog = zerolog.New(fw).Level(level(debug)).With().Timestamp().Logger()
	Log = zerolog.New(io.MultiWriter(consoleWriter(os.Stderr), fw)).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
	return nil
}

// Close closes the log file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// FilePath returns the current log file, or "" when file logging is off.
func FilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	if fileWriter == nil {
		return ""
	}
	return fileWriter.Filename
}

// SetInteractive suppresses console output below debug level while a TUI is
// on screen. The log file still receives everything.
func SetInteractive(enabled bool) {
	mu.Lock()
	interactive = enabled
	mu.Unlock()
}

// logger picks the logger for non-debug events.
func logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if interactive && Log.GetLevel() != zerolog.DebugLevel {
		if fileWriter != nil {
			l := fileOnlyLog
			return &l
		}
		nop := zerolog.Nop()
		return &nop
	}
	l := Log
	return &l
}

func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return Log.Debug()
}

func Info() *zerolog.Event  { return logger().Info() }
func Warn() *zerolog.Event  { return logger().Warn() }
func Error() *zerolog.Event { return logger().Error() }

// HandleError reports a non-fatal failure together with a short label that
// identifies where it happened. It never aborts the caller.
func HandleError(err error, context string) {
	if err == nil {
		return
	}
	Error().Err(err).Str("context", context).Msg("operation failed")
}

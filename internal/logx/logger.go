// Package logx holds the process-wide zerolog logger used by gposix.
//
// The logger is a no-op until WithConfig is called, so importing the
// library never produces output on its own.
package logx

import (
	"io"
	"os"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
	nolog  = zerolog.Nop()
	pid    = os.Getpid()
)

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	// Level is the log level to use (e.g., "info", "debug").
	Level string `yaml:"level" json:"level"`
	// ConsoleLogging enables logging to stderr.
	ConsoleLogging bool `yaml:"consoleLogging" json:"consoleLogging"`
	// FileLogging enables logging to a rolling file.
	FileLogging bool `yaml:"fileLogging" json:"fileLogging"`
	// Directory specifies the directory for log files.
	Directory string `yaml:"directory" json:"directory"`
	// Filename is the name of the log file.
	Filename string `yaml:"filename" json:"filename"`
	// MaxSize is the maximum size (in MB) of a log file before it is rolled.
	MaxSize int `yaml:"maxSize" json:"maxSize"`
	// MaxBackups is the maximum number of rolled log files to keep.
	MaxBackups int `yaml:"maxBackups" json:"maxBackups"`
	// MaxAge is the maximum age (in days) to keep a log file.
	MaxAge int `yaml:"maxAge" json:"maxAge"`
	// Compress enables compression of rolled log files.
	Compress bool `yaml:"compress" json:"compress"`
}

// WithConfig replaces the global logger. fields are attached to every event.
func WithConfig(cfg *LoggingConfig, fields map[string]string) error {
	l, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var writers []io.Writer
	if cfg.ConsoleLogging {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
	if cfg.FileLogging {
		writers = append(writers, newRollingFile(cfg))
	}

	if len(writers) == 0 {
		mu.Lock()
		logger = zerolog.Nop()
		mu.Unlock()
		return nil
	}

	c := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(l).
		With().
		Timestamp().
		Int("pid", pid)

	for k, v := range fields {
		c = c.Str(k, v)
	}

	mu.Lock()
	logger = c.Logger()
	mu.Unlock()
	return nil
}

// Set installs an existing logger, mainly for tests.
func Set(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// As returns the global logger.
func As() *zerolog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	return &l
}

func Nop() *zerolog.Logger {
	return &nolog
}

func newRollingFile(cfg *LoggingConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   path.Join(cfg.Directory, cfg.Filename),
		MaxBackups: cfg.MaxBackups, // files
		MaxSize:    cfg.MaxSize,    // megabytes
		MaxAge:     cfg.MaxAge,     // days
		Compress:   cfg.Compress,
	}
}

package common

import (
	"bytes"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes error-level log lines to stderr and everything else
// to stdout so containerized deployments can treat the streams differently.
type OutputSplitter struct{}

// Write implements io.Writer by inspecting the rendered log line.
func (s *OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance shared by all engine components.
var Logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&OutputSplitter{})
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// LoggerConfig contains configuration for creating a logger.
type LoggerConfig struct {
	Level      string // debug, info, warn, error, fatal
	Format     string // "json" or "text"
	Service    string // service name attached to all entries
	TimeFormat string
}

// DefaultLoggerConfig returns a logger config with sensible defaults.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      "info",
		Format:     "text",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a configured logrus logger.
func NewLogger(config LoggerConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&OutputSplitter{})

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.TimeFormat == "" {
		config.TimeFormat = time.RFC3339
	}
	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: config.TimeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: config.TimeFormat,
			FullTimestamp:   true,
		})
	}
	return logger
}

// ServiceLogger returns an entry pre-tagged with the service name.
func ServiceLogger(logger *logrus.Logger, service string) *logrus.Entry {
	return logger.WithField("service", service)
}

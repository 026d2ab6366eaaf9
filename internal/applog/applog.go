// Package applog wires the module's demo binaries to structured logging:
// logrus for formatting and level filtering, lumberjack for rotating file
// output when one is configured. Library packages under pkg/ never import
// this package — they report recoverable oddities through warn.Sink
// instead, so only cmd/netstackd, source/server and source/client hold a
// *logrus.Logger.
package applog

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how log output is written.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns the logging defaults used when a config file
// omits the log section entirely.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text"}
}

// New builds a *logrus.Logger per cfg. An empty FilePath logs to stderr
// only; a non-empty one additionally rotates through lumberjack.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("applog: invalid level %q: %w", cfg.Level, err)
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("applog: unsupported format %q (want text or json)", cfg.Format)
	}

	if cfg.FilePath != "" {
		log.AddHook(&fileHook{
			writer: &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			},
			formatter: log.Formatter,
			levels:    logrus.AllLevels,
		})
	}

	return log, nil
}

// fileHook mirrors every log entry at or above its minimum level into a
// rotating file, independent of the logger's primary stderr output.
type fileHook struct {
	writer    *lumberjack.Logger
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *fileHook) Levels() []logrus.Level { return h.levels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("applog: formatting entry for file hook: %w", err)
	}
	_, err = h.writer.Write(line)
	return err
}

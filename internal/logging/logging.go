// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"

	"github.com/TrieuQuan2005/IdsService/internal/config"
)

// TimeFormat names the per-run log directory.
const TimeFormat = "2006-01-02_15-04-05"

// Init applies cfg to the standard logger.
func Init(cfg config.LogConfig) error {
	_, err := Configure(log.StandardLogger(), cfg, time.Now())
	return err
}

// Configure applies cfg to logger. When cfg.Dir is set, entries are also
// written as JSON to one file per level under cfg.Dir/<now>, whose path is
// returned.
func Configure(logger *log.Logger, cfg config.LogConfig, now time.Time) (string, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return "", fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return "", fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.Dir == "" {
		return "", nil
	}
	logPath := filepath.Join(cfg.Dir, now.Format(TimeFormat))
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	logger.AddHook(lfshook.NewHook(lfshook.PathMap{
		log.DebugLevel: filepath.Join(logPath, "debug.log"),
		log.InfoLevel:  filepath.Join(logPath, "info.log"),
		log.WarnLevel:  filepath.Join(logPath, "warn.log"),
		log.ErrorLevel: filepath.Join(logPath, "error.log"),
		log.FatalLevel: filepath.Join(logPath, "fatal.log"),
		log.PanicLevel: filepath.Join(logPath, "panic.log"),
	}, &log.JSONFormatter{}))
	return logPath, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ValidationError collects every problem found in a config.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func Validate(cfg *Config) error {
	ve := &ValidationError{}

	if d, err := time.ParseDuration(cfg.Scan.Duration); err != nil {
		ve.Add("scan.duration: %v", err)
	} else if d <= 0 {
		ve.Add("scan.duration must be positive, got %s", cfg.Scan.Duration)
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		ve.Add("log.level: %v", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		ve.Add("log.format must be text or json, got %q", cfg.Log.Format)
	}

	switch cfg.Prefs.Backend {
	case "file", "sqlite":
	default:
		ve.Add("prefs.backend must be file or sqlite, got %q", cfg.Prefs.Backend)
	}
	if cfg.Prefs.Path == "" {
		ve.Add("prefs.path is required")
	}

	if _, err := cron.ParseStandard(cfg.Tracking.Schedule); err != nil {
		ve.Add("tracking.schedule: %v", err)
	}
	if cfg.Tracking.AlertDistance <= 0 {
		ve.Add("tracking.alert_distance must be positive")
	}
	if cfg.Tracking.HistorySize <= 0 {
		ve.Add("tracking.history_size must be positive")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// Package config loads the bluescout YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "bluescout.yaml"
	// EnvPath overrides the config file location.
	EnvPath = "BLUESCOUT_CONFIG"
)

type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Log      LogConfig      `yaml:"log"`
	Prefs    PrefsConfig    `yaml:"prefs"`
	Export   ExportConfig   `yaml:"export"`
	Tracking TrackingConfig `yaml:"tracking"`
}

type ScanConfig struct {
	Duration string `yaml:"duration"` // "15s"
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr or a file path
}

type PrefsConfig struct {
	Backend string `yaml:"backend"` // file, sqlite
	Path    string `yaml:"path"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type TrackingConfig struct {
	Schedule      string  `yaml:"schedule"`       // cron spec or @every descriptor
	AlertDistance float64 `yaml:"alert_distance"` // meters
	HistorySize   int     `yaml:"history_size"`
}

func Defaults() *Config {
	return &Config{
		Scan: ScanConfig{Duration: "15s"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Prefs: PrefsConfig{
			Backend: "file",
			Path:    filepath.Join(defaultDataDir(), "prefs.json"),
		},
		Export: ExportConfig{Dir: "."},
		Tracking: TrackingConfig{
			Schedule:      "@every 1m",
			AlertDistance: 2.0,
			HistorySize:   100,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bluescout")
	}
	return ".bluescout"
}

// ResolvePath picks the config path: explicit flag, then env, then the default.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if v := os.Getenv(EnvPath); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads path, writing a default file there first if none exists.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ScanDuration returns the parsed scan duration. Validate guarantees it parses.
func (c *Config) ScanDuration() time.Duration {
	d, err := time.ParseDuration(c.Scan.Duration)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

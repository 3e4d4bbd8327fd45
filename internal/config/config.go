// Package config centralises configuration for the fieldops client.
//
// Values are layered: built-in defaults, then <data-dir>/config.yaml, then
// FIELDOPS_* environment variables. Command flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding the database, config and logs.
const DirName = ".fieldops"

// Config captures runtime configuration values for the client.
type Config struct {
	Server               string        `yaml:"server"`
	BasePath             string        `yaml:"base_path"`
	DataDir              string        `yaml:"data_dir"`
	HTTPTimeout          time.Duration `yaml:"http_timeout"`
	LogLevel             string        `yaml:"log_level"`
	NotificationInterval time.Duration `yaml:"notification_interval"`
	BannerTTL            time.Duration `yaml:"banner_ttl"`
	Photos               PhotoConfig   `yaml:"photos"`
}

// PhotoConfig tunes the photo load scheduler.
type PhotoConfig struct {
	InlineAttempts  int           `yaml:"inline_attempts"`
	GalleryAttempts int           `yaml:"gallery_attempts"`
	ManualAttempts  int           `yaml:"manual_attempts"`
	BackoffUnit     time.Duration `yaml:"backoff_unit"`
	QueueGap        time.Duration `yaml:"queue_gap"`
	GalleryStagger  time.Duration `yaml:"gallery_stagger"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server:               "http://localhost:8080",
		BasePath:             "/rest",
		HTTPTimeout:          30 * time.Second,
		LogLevel:             "info",
		NotificationInterval: 30 * time.Second,
		BannerTTL:            5 * time.Second,
		Photos: PhotoConfig{
			InlineAttempts:  3,
			GalleryAttempts: 2,
			ManualAttempts:  2,
			BackoffUnit:     time.Second,
			QueueGap:        200 * time.Millisecond,
			GalleryStagger:  300 * time.Millisecond,
		},
	}
}

// Load reads defaults, the YAML file and the environment, in that order.
func Load() (Config, error) {
	cfg := Default()

	dataDir, err := defaultDataDir()
	if err != nil {
		return cfg, err
	}
	cfg.DataDir = getEnv("FIELDOPS_DATA_DIR", dataDir)

	if err := cfg.mergeFile(filepath.Join(cfg.DataDir, "config.yaml")); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// APIBaseURL joins the server and base path.
func (c Config) APIBaseURL() string {
	return strings.TrimRight(c.Server, "/") + c.BasePath
}

// DatabasePath is where the local store lives.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "fieldops.db")
}

// LogPath is the log file written by the logging package.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "fieldops.log")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server = getEnv("FIELDOPS_SERVER", c.Server)
	c.BasePath = getEnv("FIELDOPS_BASE_PATH", c.BasePath)
	c.LogLevel = getEnv("FIELDOPS_LOG_LEVEL", c.LogLevel)
	c.HTTPTimeout = getDurationEnv("FIELDOPS_HTTP_TIMEOUT", c.HTTPTimeout)
	c.NotificationInterval = getDurationEnv("FIELDOPS_NOTIFICATION_INTERVAL", c.NotificationInterval)
	c.Photos.InlineAttempts = getIntEnv("FIELDOPS_PHOTO_ATTEMPTS", c.Photos.InlineAttempts)
	c.Photos.BackoffUnit = getDurationEnv("FIELDOPS_PHOTO_BACKOFF", c.Photos.BackoffUnit)
}

// normalize repairs values a hand-edited file may have broken.
func (c *Config) normalize() {
	def := Default()
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		c.BasePath = "/" + c.BasePath
	}
	c.BasePath = strings.TrimRight(c.BasePath, "/")
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = def.HTTPTimeout
	}
	if c.NotificationInterval <= 0 {
		c.NotificationInterval = def.NotificationInterval
	}
	if c.BannerTTL <= 0 {
		c.BannerTTL = def.BannerTTL
	}
	if c.Photos.InlineAttempts <= 0 {
		c.Photos.InlineAttempts = def.Photos.InlineAttempts
	}
	if c.Photos.GalleryAttempts <= 0 {
		c.Photos.GalleryAttempts = def.Photos.GalleryAttempts
	}
	if c.Photos.ManualAttempts <= 0 {
		c.Photos.ManualAttempts = def.Photos.ManualAttempts
	}
	if c.Photos.BackoffUnit <= 0 {
		c.Photos.BackoffUnit = def.Photos.BackoffUnit
	}
	if c.Photos.QueueGap < 0 {
		c.Photos.QueueGap = def.Photos.QueueGap
	}
	if c.Photos.GalleryStagger < 0 {
		c.Photos.GalleryStagger = def.Photos.GalleryStagger
	}
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: locate home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

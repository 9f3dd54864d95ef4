// Package config loads server settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Clockify ClockifyConfig `yaml:"clockify"`
	Leave    LeaveConfig    `yaml:"leave"`
	Holidays HolidayConfig  `yaml:"holidays"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	// Location is the IANA zone deciding which day a time entry falls on.
	Location string `yaml:"location"`
}

// LogConfig configures the logger and file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ClockifyConfig holds time tracker credentials. An empty key disables timesheets.
type ClockifyConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Workspace string        `yaml:"workspace"`
	PageSize  int           `yaml:"page_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LeaveConfig locates the leave spreadsheets.
type LeaveConfig struct {
	Dir string `yaml:"dir"`
}

// HolidayConfig configures the bank-holiday feed.
type HolidayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Region  string        `yaml:"region"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig sets source cache lifetimes and the warm interval.
type CacheConfig struct {
	HolidayTTL   time.Duration `yaml:"holiday_ttl"`
	LeaveTTL     time.Duration `yaml:"leave_ttl"`
	TimeTTL      time.Duration `yaml:"time_ttl"`
	WarmInterval time.Duration `yaml:"warm_interval"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, StaticDir: "./web/dist", Location: "Europe/London"},
		Log:      LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Path: "./data/rse.db"},
		Clockify: ClockifyConfig{BaseURL: "https://reports.api.clockify.me", PageSize: 1000, Timeout: 30 * time.Second},
		Leave:    LeaveConfig{Dir: "./data/leave"},
		Holidays: HolidayConfig{BaseURL: "https://www.gov.uk", Region: "england-and-wales", Timeout: 10 * time.Second},
		Cache:    CacheConfig{HolidayTTL: 24 * time.Hour, LeaveTTL: time.Hour, TimeTTL: time.Hour, WarmInterval: 30 * time.Minute},
	}
}

// Load reads configFile (or the first default path that exists), then
// .env, then the environment. A missing file is not an error; a malformed
// one is.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"etc/config.yaml", "/etc/rse-admin/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	_ = godotenv.Load()

	envOverride(&c.Clockify.APIKey, "CLOCKIFY_API_KEY")
	envOverride(&c.Clockify.Workspace, "CLOCKIFY_WORKSPACE")
	envOverride(&c.Clockify.BaseURL, "CLOCKIFY_BASE_URL")
	envOverride(&c.Leave.Dir, "LEAVE_DIR")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Server.StaticDir, "STATIC_DIR")
	envOverrideInt(&c.Server.Port, "PORT")

	return c, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// TrackerEnabled reports whether time-tracker credentials are present.
func (c *Config) TrackerEnabled() bool {
	return c.Clockify.APIKey != "" && c.Clockify.Workspace != ""
}

// TimeLocation resolves Server.Location, falling back to UTC.
func (c *Config) TimeLocation() *time.Location {
	if c.Server.Location == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Server.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

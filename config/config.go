// CLAUDE:SUMMARY coursesync configuration: YAML file, COURSESYNC_* environment overrides (optionally from .env), defaults and explicit paths.
// Package config loads the coursesync configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file
// (~/.config/coursesync/config.yaml), environment variables. A .env file
// can populate the environment before loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvBaseURL     = "COURSESYNC_BASE_URL"
	EnvToken       = "COURSESYNC_TOKEN"
	EnvDataDir     = "COURSESYNC_DATA_DIR"
	EnvAIThreshold = "COURSESYNC_AI_THRESHOLD"
)

// Config is the top-level configuration.
type Config struct {
	// BaseURL of the LMS, e.g. https://canvas.example.edu.
	BaseURL string `yaml:"base_url"`
	// Token is an optional API access token. Without it the browser
	// session cookies are used.
	Token string `yaml:"token"`

	// ConfigDir holds the session file. Default: ~/.config/coursesync.
	ConfigDir string `yaml:"config_dir"`
	// DataDir is the root of the synced tree. Default: <config_dir>/data.
	DataDir string `yaml:"data_dir"`
	// SessionFile default: <config_dir>/session.json.
	SessionFile string `yaml:"session_file"`
	// LedgerPath default: <data_dir>/ledger.db.
	LedgerPath string `yaml:"ledger_path"`

	// AIThreshold is the detection score (percent) at or above which a
	// final submission counts as ai_high. Default: 30.
	AIThreshold float64 `yaml:"ai_threshold"`
	// UpcomingDays is the window for upcoming_assignments.json. Default: 14.
	UpcomingDays int `yaml:"upcoming_days"`
	// QuickViewDays is the window of the default command. Default: 7.
	QuickViewDays int `yaml:"quick_view_days"`

	HTTP    HTTPConfig    `yaml:"http"`
	Browser BrowserConfig `yaml:"browser"`
	Extract ExtractConfig `yaml:"extract"`
}

// HTTPConfig controls the LMS fetcher.
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	RawTimeout  time.Duration `yaml:"raw_timeout"`
	MaxRawBytes int64         `yaml:"max_raw_bytes"`
	UserAgent   string        `yaml:"user_agent"`
}

// BrowserConfig controls the interactive login.
type BrowserConfig struct {
	Remote       string        `yaml:"remote"`
	Bin          string        `yaml:"bin"`
	LoginTimeout time.Duration `yaml:"login_timeout"`
}

// ExtractConfig controls archive inlining.
type ExtractConfig struct {
	MaxInlineChars int `yaml:"max_inline_chars"`
	ListLimit      int `yaml:"list_limit"`
}

// DefaultPath returns ~/.config/coursesync/config.yaml.
func DefaultPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "coursesync")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "coursesync")
}

// Load reads path (a missing file is fine), applies environment overrides
// through getenv and fills defaults. getenv nil means os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvAIThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvAIThreshold, v, err)
		}
		c.AIThreshold = f
	}
	return nil
}

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.ConfigDir == "" {
		c.ConfigDir = defaultConfigDir()
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(c.ConfigDir, "data")
	}
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(c.ConfigDir, "session.json")
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.DataDir, "ledger.db")
	}
	if c.AIThreshold <= 0 {
		c.AIThreshold = 30
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = 14
	}
	if c.QuickViewDays <= 0 {
		c.QuickViewDays = 7
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.RawTimeout <= 0 {
		c.HTTP.RawTimeout = 60 * time.Second
	}
	if c.Browser.LoginTimeout <= 0 {
		c.Browser.LoginTimeout = 5 * time.Minute
	}
}

// Validate checks what a sync needs.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required (set it in %s or %s)", DefaultPath(), EnvBaseURL)
	}
	if !strings.HasPrefix(c.BaseURL, "https://") && !strings.HasPrefix(c.BaseURL, "http://") {
		return fmt.Errorf("config: base_url %q must start with http:// or https://", c.BaseURL)
	}
	if c.AIThreshold > 100 {
		return fmt.Errorf("config: ai_threshold %v must be a percentage", c.AIThreshold)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidDelayRange     = errors.New("rate.base_delay_min must not exceed rate.base_delay_max")
	ErrInvalidLongPause      = errors.New("rate.long_pause_min must not exceed rate.long_pause_max")
	ErrInvalidPauseInterval  = errors.New("rate.long_pause_every must be at least 1")
	ErrInvalidRefreshEvery   = errors.New("scrape.session_refresh_every must be at least 1")
	ErrInvalidMaxImages      = errors.New("scrape.max_images must be at least 1")
	ErrInvalidMaxRetries     = errors.New("retry.max_attempts must be at least 1")
	ErrMissingOutputDir      = errors.New("output.dir is required")
	ErrInvalidConcurrentJobs = errors.New("jobs.max_concurrent must be at least 1")
)

// Config holds all application configuration. Defaults are overlaid by
// an optional YAML file, then by environment variables (.env supported).
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Browser  BrowserConfig  `yaml:"browser"`
	Rate     RateConfig     `yaml:"rate"`
	Retry    RetryConfig    `yaml:"retry"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Output   OutputConfig   `yaml:"output"`
	Jobs     JobsConfig     `yaml:"jobs"`
	APIAddr  string         `yaml:"api_addr"`
}

// PostgresConfig describes the optional record sink.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	SSLMode  string `yaml:"sslmode"`
}

// BrowserConfig describes the Chrome session.
type BrowserConfig struct {
	Headless           bool     `yaml:"headless"`
	ChromeBin          string   `yaml:"chrome_bin"`
	ViewportWidth      int      `yaml:"viewport_width"`
	ViewportHeight     int      `yaml:"viewport_height"`
	Locale             string   `yaml:"locale"`
	Timezone           string   `yaml:"timezone"`
	AcceptLanguage     string   `yaml:"accept_language"`
	UserAgents         []string `yaml:"user_agents"`
	PageLoadTimeoutSec int      `yaml:"page_load_timeout_sec"`
	ElementWaitMs      int      `yaml:"element_wait_ms"`
}

// RateConfig tunes the adaptive request scheduler.
type RateConfig struct {
	BaseDelayMinSec float64 `yaml:"base_delay_min_sec"`
	BaseDelayMaxSec float64 `yaml:"base_delay_max_sec"`
	LongPauseEvery  int     `yaml:"long_pause_every"`
	LongPauseMinSec float64 `yaml:"long_pause_min_sec"`
	LongPauseMaxSec float64 `yaml:"long_pause_max_sec"`
}

// RetryConfig tunes navigation retries.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts"`
	BaseDelaySec int `yaml:"base_delay_sec"`
}

// ScrapeConfig tunes extraction behavior.
type ScrapeConfig struct {
	MaxImages           int  `yaml:"max_images"`
	MaxTags             int  `yaml:"max_tags"`
	MaxSearchResults    int  `yaml:"max_search_results"`
	SessionRefreshEvery int  `yaml:"session_refresh_every"`
	ScreenshotOnError   bool `yaml:"screenshot_on_error"`
}

// OutputConfig describes where artifacts land.
type OutputConfig struct {
	Dir               string `yaml:"dir"`
	InputDir          string `yaml:"input_dir"`
	CheckpointEnabled bool   `yaml:"checkpoint_enabled"`
}

// JobsConfig tunes the job engine.
type JobsConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "scraper",
			DB:      "attractions_db",
			SSLMode: "disable",
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			Locale:         "he-IL",
			Timezone:       "Asia/Jerusalem",
			AcceptLanguage: "he-IL,he;q=0.9,en;q=0.8",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			PageLoadTimeoutSec: 30,
			ElementWaitMs:      10000,
		},
		Rate: RateConfig{
			BaseDelayMinSec: 2.0,
			BaseDelayMaxSec: 5.0,
			LongPauseEvery:  10,
			LongPauseMinSec: 13,
			LongPauseMaxSec: 27,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelaySec: 5,
		},
		Scrape: ScrapeConfig{
			MaxImages:           10,
			MaxTags:             10,
			MaxSearchResults:    20,
			SessionRefreshEvery: 20,
			ScreenshotOnError:   true,
		},
		Output: OutputConfig{
			Dir:               "./output",
			InputDir:          "./input",
			CheckpointEnabled: true,
		},
		Jobs:    JobsConfig{MaxConcurrent: 2},
		APIAddr: ":8080",
	}
}

// Load builds a Config from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables (a .env file is honored).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Postgres.Enabled = getEnvBool("POSTGRES_ENABLED", c.Postgres.Enabled)
	c.Postgres.Host = getEnv("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnv("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.DB = getEnv("POSTGRES_DB", c.Postgres.DB)
	c.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", c.Postgres.SSLMode)

	c.Browser.Headless = getEnvBool("HEADLESS", c.Browser.Headless)
	c.Browser.ChromeBin = getEnv("CHROME_BIN", c.Browser.ChromeBin)

	c.Scrape.MaxImages = getEnvInt("MAX_IMAGES", c.Scrape.MaxImages)
	c.Scrape.SessionRefreshEvery = getEnvInt("SESSION_REFRESH_EVERY", c.Scrape.SessionRefreshEvery)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.InputDir = getEnv("INPUT_DIR", c.Output.InputDir)

	c.Jobs.MaxConcurrent = getEnvInt("MAX_CONCURRENT_JOBS", c.Jobs.MaxConcurrent)
	c.APIAddr = getEnv("API_ADDR", c.APIAddr)
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if c.Rate.BaseDelayMinSec > c.Rate.BaseDelayMaxSec {
		return ErrInvalidDelayRange
	}
	if c.Rate.LongPauseMinSec > c.Rate.LongPauseMaxSec {
		return ErrInvalidLongPause
	}
	if c.Rate.LongPauseEvery < 1 {
		return ErrInvalidPauseInterval
	}
	if c.Scrape.SessionRefreshEvery < 1 {
		return ErrInvalidRefreshEvery
	}
	if c.Scrape.MaxImages < 1 {
		return ErrInvalidMaxImages
	}
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxRetries
	}
	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}
	if c.Jobs.MaxConcurrent < 1 {
		return ErrInvalidConcurrentJobs
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.Postgres.Host +
		" port=" + c.Postgres.Port +
		" user=" + c.Postgres.User +
		" password=" + c.Postgres.Password +
		" dbname=" + c.Postgres.DB +
		" sslmode=" + c.Postgres.SSLMode
}

// ElementWait returns the primary-locator wait budget.
func (c *Config) ElementWait() time.Duration {
	return time.Duration(c.Browser.ElementWaitMs) * time.Millisecond
}

// PageLoadTimeout returns the navigation budget.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Browser.PageLoadTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

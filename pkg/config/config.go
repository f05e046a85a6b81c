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

	errs "reelscraper/pkg/errors"
)

// Persistence strategies understood by the reels persister
const (
	PersistBulk            = "bulk"
	PersistCheckThenInsert = "check_then_insert"
)

// Config holds all configuration options for the reel ingestion pipeline
type Config struct {
	Actor     ActorConfig     `yaml:"actor" json:"actor"`
	Filter    FilterConfig    `yaml:"filter" json:"filter"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Run       RunConfig       `yaml:"run" json:"run"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ActorConfig describes how to reach the external scraping actor
type ActorConfig struct {
	Token       string        `yaml:"token" json:"token"`
	ActorID     string        `yaml:"actor_id" json:"actor_id"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	ResultLimit int           `yaml:"result_limit" json:"result_limit"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// FilterConfig holds the ingest filters. Zero disables a filter.
type FilterConfig struct {
	MinViews   int64 `yaml:"min_views" json:"min_views"`
	MaxAgeDays int   `yaml:"max_age_days" json:"max_age_days"`
}

// DatabaseConfig holds the store connection settings
type DatabaseConfig struct {
	URL             string        `yaml:"url" json:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnectAttempts int           `yaml:"connect_attempts" json:"connect_attempts"`
	PersistStrategy string        `yaml:"persist_strategy" json:"persist_strategy"`
}

// RunConfig controls a single daily execution and the scheduler
type RunConfig struct {
	DryRun        bool   `yaml:"dry_run" json:"dry_run"`
	Concurrency   int    `yaml:"concurrency" json:"concurrency"`
	Schedule      string `yaml:"schedule" json:"schedule"`
	CheckpointDir string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
}

// RateLimitConfig throttles actor invocations
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Actor: ActorConfig{
			ActorID:     "apify~instagram-reel-scraper",
			BaseURL:     "https://api.apify.com",
			ResultLimit: 1000,
			Timeout:     10 * time.Minute,
		},
		Filter: FilterConfig{
			MinViews:   0,
			MaxAgeDays: 180,
		},
		Database: DatabaseConfig{
			URL:             "sqlite://./reelscraper.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 3,
			PersistStrategy: PersistBulk,
		},
		Run: RunConfig{
			Concurrency: 1,
			Schedule:    "0 6 * * *",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// lookupEnv returns the first non-empty value among keys
func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val, true
		}
	}
	return "", false
}

// LoadFromEnv loads configuration from environment variables.
// Prefixed names win over the bare ones shared with other tools.
func (c *Config) LoadFromEnv() error {
	var errList []error

	if v, ok := lookupEnv("REELSCRAPER_ACTOR_TOKEN", "APIFY_TOKEN"); ok {
		c.Actor.Token = v
	}
	if v, ok := lookupEnv("REELSCRAPER_ACTOR_ID"); ok {
		c.Actor.ActorID = v
	}
	if v, ok := lookupEnv("REELSCRAPER_ACTOR_BASE_URL"); ok {
		c.Actor.BaseURL = v
	}
	if v, ok := lookupEnv("REELSCRAPER_RESULT_LIMIT"); ok {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errList = append(errList, fmt.Errorf("REELSCRAPER_RESULT_LIMIT: %w", err))
		} else if val > 0 {
			c.Actor.ResultLimit = val
		}
	}
	if v, ok := lookupEnv("REELSCRAPER_ACTOR_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errList = append(errList, fmt.Errorf("REELSCRAPER_ACTOR_TIMEOUT: %w", err))
		} else {
			c.Actor.Timeout = d
		}
	}

	if v, ok := lookupEnv("REELSCRAPER_MIN_VIEWS", "MIN_VIEWS"); ok {
		var val int64
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errList = append(errList, fmt.Errorf("MIN_VIEWS: %w", err))
		} else {
			c.Filter.MinViews = val
		}
	}
	if v, ok := lookupEnv("REELSCRAPER_MAX_AGE_DAYS", "MAX_AGE_DAYS"); ok {
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errList = append(errList, fmt.Errorf("MAX_AGE_DAYS: %w", err))
		} else {
			c.Filter.MaxAgeDays = val
		}
	}

	if v, ok := lookupEnv("REELSCRAPER_DATABASE_URL", "DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := lookupEnv("DB_MAX_OPEN_CONNS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.MaxOpenConns = n
		}
	}
	if v, ok := lookupEnv("DB_MAX_IDLE_CONNS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Database.MaxIdleConns = n
		}
	}
	if v, ok := lookupEnv("DB_CONN_MAX_LIFETIME"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Database.ConnMaxLifetime = d
		}
	}
	if v, ok := lookupEnv("REELSCRAPER_PERSIST_STRATEGY"); ok {
		c.Database.PersistStrategy = strings.ToLower(v)
	}

	if v, ok := lookupEnv("REELSCRAPER_DRY_RUN", "DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errList = append(errList, fmt.Errorf("DRY_RUN: %w", err))
		} else {
			c.Run.DryRun = b
		}
	}
	if v, ok := lookupEnv("REELSCRAPER_CONCURRENCY"); ok {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Run.Concurrency = val
		}
	}
	if v, ok := lookupEnv("REELSCRAPER_SCHEDULE"); ok {
		c.Run.Schedule = v
	}
	if v, ok := lookupEnv("REELSCRAPER_CHECKPOINT_DIR"); ok {
		c.Run.CheckpointDir = v
	}

	if v, ok := lookupEnv("REELSCRAPER_REQUESTS_PER_MINUTE"); ok {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if v, ok := lookupEnv("REELSCRAPER_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("REELSCRAPER_LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := lookupEnv("REELSCRAPER_LOG_FORMAT"); ok {
		c.Logging.Format = v
	}

	return errors.Join(errList...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".reelscraper.yaml",
		".reelscraper.yml",
		filepath.Join(home, ".config", "reelscraper", "config.yaml"),
		filepath.Join(home, ".config", "reelscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The actor token is
// checked separately by ValidateCredentials.
func (c *Config) Validate() error {
	var errList []error

	if c.Actor.ActorID == "" {
		errList = append(errList, errors.New("actor id is required"))
	}
	if c.Actor.BaseURL == "" {
		errList = append(errList, errors.New("actor base url is required"))
	}
	if c.Actor.ResultLimit <= 0 {
		errList = append(errList, errors.New("result limit must be positive"))
	}
	if c.Actor.Timeout < 0 {
		errList = append(errList, errors.New("actor timeout cannot be negative"))
	}

	if c.Filter.MinViews < 0 {
		errList = append(errList, errors.New("min views cannot be negative"))
	}
	if c.Filter.MaxAgeDays < 0 {
		errList = append(errList, errors.New("max age days cannot be negative"))
	}

	url := c.Database.URL
	switch {
	case url == "":
		errList = append(errList, errors.New("database url is required"))
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
	default:
		errList = append(errList, fmt.Errorf("unsupported database url: %s", url))
	}
	switch c.Database.PersistStrategy {
	case PersistBulk, PersistCheckThenInsert:
	default:
		errList = append(errList, fmt.Errorf("invalid persist strategy %q", c.Database.PersistStrategy))
	}
	if c.Database.ConnectAttempts <= 0 {
		errList = append(errList, errors.New("connect attempts must be positive"))
	}

	if c.Run.Concurrency <= 0 {
		errList = append(errList, errors.New("concurrency must be positive"))
	}
	if c.Run.Concurrency > 16 {
		errList = append(errList, errors.New("concurrency should not exceed 16"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errList = append(errList, errors.New("requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errList = append(errList, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errList = append(errList, errors.New("invalid log format"))
	}

	return errors.Join(errList...)
}

// ValidateCredentials reports a config error when no actor token is set
func (c *Config) ValidateCredentials() error {
	if strings.TrimSpace(c.Actor.Token) == "" {
		return errs.New("config", errs.ErrorTypeConfig,
			"actor token is required (set REELSCRAPER_ACTOR_TOKEN, APIFY_TOKEN or run 'reelscraper auth set')")
	}
	return nil
}

// MinViewsFilter returns the view floor, or nil when the filter is off
func (c *Config) MinViewsFilter() *int64 {
	if c.Filter.MinViews <= 0 {
		return nil
	}
	v := c.Filter.MinViews
	return &v
}

// MaxAgeDaysFilter returns the age ceiling, or nil when the filter is off
func (c *Config) MaxAgeDaysFilter() *int {
	if c.Filter.MaxAgeDays <= 0 {
		return nil
	}
	v := c.Filter.MaxAgeDays
	return &v
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Actor.Token = token
	}
	if dbURL, ok := flags["database-url"].(string); ok && dbURL != "" {
		c.Database.URL = dbURL
	}
	if strategy, ok := flags["strategy"].(string); ok && strategy != "" {
		c.Database.PersistStrategy = strategy
	}
	if minViews, ok := flags["min-views"].(int64); ok && minViews >= 0 {
		c.Filter.MinViews = minViews
	}
	if maxAge, ok := flags["max-age-days"].(int); ok && maxAge >= 0 {
		c.Filter.MaxAgeDays = maxAge
	}
	if dryRun, ok := flags["dry-run"].(bool); ok && dryRun {
		c.Run.DryRun = true
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Run.Concurrency = concurrency
	}
	if schedule, ok := flags["cron"].(string); ok && schedule != "" {
		c.Run.Schedule = schedule
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".reelscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

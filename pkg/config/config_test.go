package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelscraper/pkg/errors"
)

var envKeys = []string{
	"REELSCRAPER_ACTOR_TOKEN", "APIFY_TOKEN", "REELSCRAPER_ACTOR_ID", "REELSCRAPER_ACTOR_BASE_URL",
	"REELSCRAPER_RESULT_LIMIT", "REELSCRAPER_ACTOR_TIMEOUT", "REELSCRAPER_MIN_VIEWS", "MIN_VIEWS",
	"REELSCRAPER_MAX_AGE_DAYS", "MAX_AGE_DAYS", "REELSCRAPER_DATABASE_URL", "DATABASE_URL",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "REELSCRAPER_PERSIST_STRATEGY",
	"REELSCRAPER_DRY_RUN", "DRY_RUN", "REELSCRAPER_CONCURRENCY", "REELSCRAPER_SCHEDULE",
	"REELSCRAPER_CHECKPOINT_DIR", "REELSCRAPER_REQUESTS_PER_MINUTE", "REELSCRAPER_LOG_LEVEL",
	"REELSCRAPER_LOG_FILE", "REELSCRAPER_LOG_FORMAT",
}

// clearEnv blanks every variable LoadFromEnv reads so host settings don't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Actor.ResultLimit != 1000 {
		t.Errorf("Expected default result limit to be 1000, got %d", config.Actor.ResultLimit)
	}
	if config.Filter.MinViews != 0 {
		t.Errorf("Expected default min views to be 0, got %d", config.Filter.MinViews)
	}
	if config.Filter.MaxAgeDays != 180 {
		t.Errorf("Expected default max age days to be 180, got %d", config.Filter.MaxAgeDays)
	}
	if config.Run.DryRun {
		t.Error("Expected dry run to be off by default")
	}
	if config.Database.PersistStrategy != PersistBulk {
		t.Errorf("Expected default persist strategy to be bulk, got %s", config.Database.PersistStrategy)
	}

	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APIFY_TOKEN", "apify-token")
	t.Setenv("MIN_VIEWS", "50")
	t.Setenv("MAX_AGE_DAYS", "7")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/reels")
	t.Setenv("REELSCRAPER_CONCURRENCY", "4")
	t.Setenv("REELSCRAPER_ACTOR_TIMEOUT", "90s")
	t.Setenv("REELSCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "apify-token", config.Actor.Token)
	assert.Equal(t, int64(50), config.Filter.MinViews)
	assert.Equal(t, 7, config.Filter.MaxAgeDays)
	assert.True(t, config.Run.DryRun)
	assert.Equal(t, "postgres://u:p@localhost:5432/reels", config.Database.URL)
	assert.Equal(t, 4, config.Run.Concurrency)
	assert.Equal(t, 90*time.Second, config.Actor.Timeout)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvPrefixedWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("APIFY_TOKEN", "shared")
	t.Setenv("REELSCRAPER_ACTOR_TOKEN", "own")
	t.Setenv("MAX_AGE_DAYS", "30")
	t.Setenv("REELSCRAPER_MAX_AGE_DAYS", "0")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "own", config.Actor.Token)
	assert.Equal(t, 0, config.Filter.MaxAgeDays)
	assert.Nil(t, config.MaxAgeDaysFilter())
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRY_RUN", "sometimes")
	t.Setenv("MIN_VIEWS", "lots")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRY_RUN")
	assert.Contains(t, err.Error(), "MIN_VIEWS")
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `actor:
  actor_id: "someone~reel-actor"
  result_limit: 200
  timeout: 2m
filter:
  min_views: 1000
  max_age_days: 14
database:
  url: "sqlite://` + filepath.Join(tmpDir, "reels.db") + `"
  persist_strategy: check_then_insert
run:
  concurrency: 3
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "someone~reel-actor", config.Actor.ActorID)
	assert.Equal(t, 200, config.Actor.ResultLimit)
	assert.Equal(t, 2*time.Minute, config.Actor.Timeout)
	assert.Equal(t, int64(1000), config.Filter.MinViews)
	assert.Equal(t, 14, config.Filter.MaxAgeDays)
	assert.Equal(t, PersistCheckThenInsert, config.Database.PersistStrategy)
	assert.Equal(t, 3, config.Run.Concurrency)
	assert.Equal(t, "warn", config.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, "https://api.apify.com", config.Actor.BaseURL)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("actor: [unterminated"), 0644))

	config := DefaultConfig()
	assert.Error(t, config.LoadFromFile(configPath))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "negative min views", mutate: func(c *Config) { c.Filter.MinViews = -1 }, wantErr: true},
		{name: "negative max age", mutate: func(c *Config) { c.Filter.MaxAgeDays = -5 }, wantErr: true},
		{name: "zero result limit", mutate: func(c *Config) { c.Actor.ResultLimit = 0 }, wantErr: true},
		{name: "unknown strategy", mutate: func(c *Config) { c.Database.PersistStrategy = "upsert" }, wantErr: true},
		{name: "mysql url", mutate: func(c *Config) { c.Database.URL = "mysql://localhost/reels" }, wantErr: true},
		{name: "postgres url", mutate: func(c *Config) { c.Database.URL = "postgresql://localhost/reels" }, wantErr: false},
		{name: "too much concurrency", mutate: func(c *Config) { c.Run.Concurrency = 64 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "json log format", mutate: func(c *Config) { c.Logging.Format = "json" }, wantErr: false},
		{name: "token not required", mutate: func(c *Config) { c.Actor.Token = "" }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	config := DefaultConfig()

	err := config.ValidateCredentials()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))

	config.Actor.Token = "token"
	assert.NoError(t, config.ValidateCredentials())
}

func TestFilterAccessors(t *testing.T) {
	config := DefaultConfig()
	assert.Nil(t, config.MinViewsFilter())
	require.NotNil(t, config.MaxAgeDaysFilter())
	assert.Equal(t, 180, *config.MaxAgeDaysFilter())

	config.Filter.MinViews = 50
	require.NotNil(t, config.MinViewsFilter())
	assert.Equal(t, int64(50), *config.MinViewsFilter())
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"dry-run":      true,
		"concurrency":  5,
		"min-views":    int64(10),
		"max-age-days": 3,
		"strategy":     PersistCheckThenInsert,
		"log-level":    "error",
	})

	assert.True(t, config.Run.DryRun)
	assert.Equal(t, 5, config.Run.Concurrency)
	assert.Equal(t, int64(10), config.Filter.MinViews)
	assert.Equal(t, 3, config.Filter.MaxAgeDays)
	assert.Equal(t, PersistCheckThenInsert, config.Database.PersistStrategy)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := DefaultConfig()
	original.Filter.MinViews = 250
	original.Run.Schedule = "30 5 * * *"
	require.NoError(t, original.Save(path))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(250), loaded.Filter.MinViews)
	assert.Equal(t, "30 5 * * *", loaded.Run.Schedule)
}

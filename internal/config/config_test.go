package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tgharvest/internal/config"
)

// isolateEnv points ENV_FILE at an empty file so a developer's .env cannot
// leak into the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), "empty.env")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	t.Setenv("ENV_FILE", empty)
	for _, k := range []string{"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE", "DB_PATH", "LOG_LEVEL", "SMTP_PASS"} {
		t.Setenv(k, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Channels, 5)
	assert.Equal(t, "Chemed", cfg.Channels[1].Name)
	assert.Equal(t, "https://t.me/CheMed123", cfg.Channels[1].URL)
	assert.Equal(t, 100, cfg.Scraping.MaxMessages)
	assert.Equal(t, "replace", cfg.Database.IfExists)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[[channels]]
name = "DoctorsET"
url = "https://t.me/DoctorsET"

[scraping]
max_messages = 25
raw_dir = "out/raw"

[database]
driver = "sqlite"
path = "out/test.db"
table = "messages"
if_exists = "append"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, "DoctorsET", cfg.Channels[0].Name)
	assert.Equal(t, 25, cfg.Scraping.MaxMessages)
	assert.Equal(t, "out/raw", cfg.Scraping.RawDir)
	assert.Equal(t, 2, cfg.Scraping.Concurrency, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "messages", cfg.Database.Table)
	assert.Equal(t, "append", cfg.Database.IfExists)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_HOST=db.internal\nDB_NAME=medical\n"), 0600))
	t.Setenv("ENV_FILE", envFile)
	// godotenv never overrides a variable that is already set, even to "".
	require.NoError(t, os.Unsetenv("DB_HOST"))
	require.NoError(t, os.Unsetenv("DB_NAME"))

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Default().Save(path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "medical", cfg.Database.Name)
	assert.Len(t, cfg.Channels, 5)
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, created, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, config.Default().Channels, cfg.Channels)

	_, err = os.Stat(path)
	require.NoError(t, err)

	_, created, err = config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"no channels", func(c *config.Config) { c.Channels = nil }, config.ErrNoChannels},
		{"missing name", func(c *config.Config) { c.Channels[0].Name = "" }, config.ErrChannelMissingName},
		{"name with parent dir", func(c *config.Config) { c.Channels[0].Name = "../x" }, config.ErrInvalidChannelName},
		{"name with slash", func(c *config.Config) { c.Channels[0].Name = "a/b" }, config.ErrInvalidChannelName},
		{"name with backslash", func(c *config.Config) { c.Channels[0].Name = `a\b` }, config.ErrInvalidChannelName},
		{"name is dot dot", func(c *config.Config) { c.Channels[0].Name = ".." }, config.ErrInvalidChannelName},
		{"name is hidden file", func(c *config.Config) { c.Channels[0].Name = ".env" }, config.ErrInvalidChannelName},
		{"name with space", func(c *config.Config) { c.Channels[0].Name = "a b" }, config.ErrInvalidChannelName},
		{"missing url", func(c *config.Config) { c.Channels[0].URL = "" }, config.ErrChannelMissingURL},
		{"duplicate channel", func(c *config.Config) { c.Channels[1].Name = c.Channels[0].Name }, config.ErrDuplicateChannel},
		{"max messages", func(c *config.Config) { c.Scraping.MaxMessages = 0 }, config.ErrInvalidMaxMessages},
		{"concurrency", func(c *config.Config) { c.Scraping.Concurrency = 0 }, config.ErrInvalidConcurrency},
		{"raw dir", func(c *config.Config) { c.Scraping.RawDir = "" }, config.ErrMissingRawDir},
		{"date policy", func(c *config.Config) { c.Cleaning.OnDateError = "guess" }, config.ErrInvalidDateError},
		{"driver", func(c *config.Config) { c.Database.Driver = "mysql" }, config.ErrInvalidDriver},
		{"sqlite path", func(c *config.Config) { c.Database.Driver = "sqlite"; c.Database.Path = "" }, config.ErrMissingSQLitePath},
		{"if exists", func(c *config.Config) { c.Database.IfExists = "merge" }, config.ErrInvalidIfExists},
		{"table name", func(c *config.Config) { c.Database.Table = "messages; DROP TABLE x" }, config.ErrInvalidTableName},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"email addresses", func(c *config.Config) { c.Email.Enabled = true }, config.ErrMissingEmailAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

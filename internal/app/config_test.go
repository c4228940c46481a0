package app_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hersh/gotris-versus/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{"CONFIG_FILE", "APP_ENV", "PORT", "LOG_LEVEL", "CORS_ALLOW", "SEND_BUFFER", "EVENT_BUFFER"}

// cleanEnv unsets every config variable for the duration of the test and
// moves into an empty directory so no stray .env is picked up.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := app.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSAllow)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, 1024, cfg.EventBuffer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("CORS_ALLOW", " https://a.example , ,https://b.example")
	t.Setenv("SEND_BUFFER", "64")
	t.Setenv("EVENT_BUFFER", "-1")

	cfg, err := app.Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllow)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, 1024, cfg.EventBuffer, "non-positive values fall back")
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := cleanEnv(t)
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
log_level: debug
cors_allow: ["https://play.example"]
send_buffer: 32
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := app.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"https://play.example"}, cfg.CORSAllow)
	assert.Equal(t, 32, cfg.SendBuffer)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := cleanEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=4567\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PORT") })

	cfg, err := app.Load()
	require.NoError(t, err)
	assert.Equal(t, ":4567", cfg.Addr())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		dir := cleanEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(dir, "nope.yaml"))
		_, err := app.Load()
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		dir := cleanEnv(t)
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
		t.Setenv("CONFIG_FILE", path)
		_, err := app.Load()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		cleanEnv(t)
		t.Setenv("PORT", "http")
		_, err := app.Load()
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := app.NewLogger("prod", "info", &buf)
	logger.Debug("hidden")
	logger.Info("shown", "room_id", "R1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"room_id":"R1"`)

	buf.Reset()
	logger = app.NewLogger("dev", "debug", &buf)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, app.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, app.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, app.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, app.ParseLevel("chatty"))
}

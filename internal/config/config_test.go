package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	oboe "github.com/JustHoIt/oboe-vintage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{KeyBaseURL, KeyTimeout, KeyLogLevel, KeyDebug} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, oboe.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyBaseURL, " https://api.example.com ")
	t.Setenv(KeyTimeout, "3s")
	t.Setenv(KeyLogLevel, "debug")
	t.Setenv(KeyDebug, "true")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Debug)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OBOE_API_BASE_URL=http://file.test\nOBOE_API_TIMEOUT=2s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://file.test", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	t.Setenv(KeyBaseURL, "http://env.test")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env.test", cfg.BaseURL, "environment should override the file")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable timeout", KeyTimeout, "soon"},
		{"negative timeout", KeyTimeout, "-1s"},
		{"zero timeout", KeyTimeout, "0s"},
		{"unknown level", KeyLogLevel, "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(missingEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &Config{BaseURL: "http://api.test", Timeout: time.Second, Debug: true}

	client := oboe.New(cfg.ClientOptions(nil)...)
	require.True(t, client.IsValid(), "debug without a logger must not be enabled")
	assert.Equal(t, "http://api.test", client.BaseURL())
	assert.Equal(t, time.Second, client.Timeout())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client = oboe.New(cfg.ClientOptions(logger)...)
	assert.True(t, client.IsValid())
}

package cli

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	oboe "github.com/JustHoIt/oboe-vintage"
	"github.com/JustHoIt/oboe-vintage/internal/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.env")
}

func TestHealthReachable(t *testing.T) {
	s := apitest.NewServer(t)
	s.Handle(http.MethodGet, oboe.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.Envelope(w, http.StatusOK, map[string]bool{"ok": true})
	})

	out, _, err := run(t, "health", "--base-url", s.URL, "--env-file", noEnvFile(t))
	require.NoError(t, err)

	assert.Contains(t, out, "✅ backend reachable")
	assert.Contains(t, out, s.URL+oboe.HealthPath)
	assert.Equal(t, 1, s.Hits(http.MethodGet, oboe.HealthPath))
}

func TestHealthUnreachable(t *testing.T) {
	s := apitest.NewServer(t)
	s.Handle(http.MethodGet, oboe.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.Error(w, http.StatusServiceUnavailable, "draining", "")
	})

	out, stderr, err := run(t, "health", "--base-url", s.URL, "--env-file", noEnvFile(t))
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Contains(t, out, "❌ backend unreachable")
	assert.Contains(t, stderr, "Health check failed")
}

func TestHealthTimeoutFlag(t *testing.T) {
	s := apitest.NewServer(t)
	s.Handle(http.MethodGet, oboe.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, _, err := run(t, "health", "--base-url", s.URL, "--timeout", "50ms", "--env-file", noEnvFile(t))

	require.ErrorIs(t, err, ErrUnhealthy)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHealthRequiresBaseURL(t *testing.T) {
	t.Setenv("OBOE_API_BASE_URL", "")

	_, _, err := run(t, "health", "--env-file", noEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), oboe.ErrNoBaseURL.Error())
	assert.NotErrorIs(t, err, ErrUnhealthy)
}

func TestHealthReadsEnvironment(t *testing.T) {
	s := apitest.NewServer(t)
	s.Handle(http.MethodGet, oboe.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.Envelope(w, http.StatusOK, nil)
	})
	t.Setenv("OBOE_API_BASE_URL", s.URL)

	_, _, err := run(t, "health", "--env-file", noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Hits(http.MethodGet, oboe.HealthPath))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, oboe.Version)
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := Execute(context.Background(), []string{"bogus"})
	assert.Error(t, err)
}

package oboe

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	if !strings.HasPrefix(v, "oboe "+Version) {
		t.Errorf("Expected version string to start with 'oboe %s', got %s", Version, v)
	}
	if !strings.Contains(v, GoVersion) {
		t.Errorf("Expected version string to contain Go version, got %s", v)
	}
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	for _, key := range []string{"version", "commit", "build_date", "go_version"} {
		if _, ok := info[key]; !ok {
			t.Errorf("Expected key %s in version info", key)
		}
	}
	if info["version"] != Version {
		t.Errorf("Expected version %s, got %s", Version, info["version"])
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "oboe-vintage/"+Version {
		t.Errorf("Expected oboe-vintage/%s, got %s", Version, got)
	}
	if got := New(WithBaseURL("http://example.com")).headers.Get("User-Agent"); got != UserAgent() {
		t.Errorf("Expected default User-Agent %s, got %s", UserAgent(), got)
	}
}

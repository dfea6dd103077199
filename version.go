package oboe

import (
	"fmt"
	"runtime"
)

// Build metadata; GitCommit and BuildDate are set with -ldflags "-X".
var (
	// Version is reported by the CLI, the tracer and the User-Agent header.
	Version   = "v0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// UserAgent is the default User-Agent every client sends.
func UserAgent() string {
	return "oboe-vintage/" + Version
}

// GetVersion returns the line printed by `oboe version`.
func GetVersion() string {
	return fmt.Sprintf("oboe %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, GoVersion)
}

// GetVersionInfo returns the build metadata as log attributes.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     GitCommit,
		"build_date": BuildDate,
		"go_version": GoVersion,
	}
}

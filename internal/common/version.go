package common

import "fmt"

// Build metadata, stamped by -ldflags at release time.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the bare version string.
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with build and commit metadata, for
// startup logs and the status endpoint.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

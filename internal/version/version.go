// Package version holds build metadata stamped via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns "<version> (<sha>, built <time>)".
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}

// Tool returns the tool identifier recorded in written datasets.
func Tool() string {
	return "meshcloud/" + Version
}

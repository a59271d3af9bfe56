// Package version holds the build identification, set at link time:
//
//	go build -ldflags "-X github.com/banshee-data/cdc-trackfinder/internal/version.Version=v0.3.0 \
//	  -X github.com/banshee-data/cdc-trackfinder/internal/version.GitSHA=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	// Version is the release of the track finder.
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build identification for the version command and
// the run log.
func String() string {
	return fmt.Sprintf("trackfind %s (%s, built %s)", Version, GitSHA, BuildTime)
}

// Package version holds build metadata set with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/mj1618/quadview/internal/version.Version=v0.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

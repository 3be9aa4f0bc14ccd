// Package version holds the hodorprobe build identity. The release build sets
// these with -ldflags "-X github.com/hazz-dev/hodorprobe/internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Package version holds build metadata stamped in at release time via
// -ldflags. A source build reports "dev".
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"

	// Commit is the short git commit hash of the build.
	Commit = "unknown"
)

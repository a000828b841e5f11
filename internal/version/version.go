// Package version exposes the build metadata stamped into the
// pawtrace binary at link time.
package version

//nolint:revive // Overwritten via -ldflags "-X ..." by the release build.
var (
	// Version is the semantic version or "dev" for local builds.
	Version = "dev"
	// Commit is the short git revision the binary was built from.
	Commit = "unknown"
	// Date is the UTC build timestamp.
	Date = "unknown"
)

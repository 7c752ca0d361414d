// Package version holds factgpt build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "0.0.1"
	Commit  = "unknown"
	Date    = "unknown"
)

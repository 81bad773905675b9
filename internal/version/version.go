// Package version holds the build-time version string cmd/wami reports
// and compares against --min-version, mirroring the teacher's own
// internal/version package.
package version

// Default is overridden by a linker -X flag in release builds; the
// fallback identifies a source checkout.
var Default = "0.0.0-dev"

// GetVersion returns the running binary's version string.
func GetVersion() string { return Default }

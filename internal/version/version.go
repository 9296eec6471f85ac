// Package version holds the build version, injected via ldflags.
package version

// Version is set at build time.
var Version = "dev"

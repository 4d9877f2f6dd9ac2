// Package version carries build metadata. Version, Commit and BuildTime are
// overridden at build time via ldflags and keep usable defaults for local
// builds.
package version

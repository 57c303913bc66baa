// Package version exposes build information stamped at compile time.
//
// Version, git commit, branch, and build time are set via -ldflags:
//
//	go build -ldflags "-X github.com/authweave/idkit/version.Version=1.0.0"
package version

// Package util holds small helpers shared across packages: size-string
// parsing, secret masking for logs, and pointer conveniences.
package util

// Package bootstrap orchestrates the identity provider's process
// lifecycle: typed config validation, logger initialization, ordered
// component startup, readiness checking, lifecycle hooks, graceful
// shutdown on OS signals, and a startup summary.
package bootstrap

// Package logger provides structured logging built on zerolog.
//
// It wraps zerolog with component tagging, a global logger, and a named
// registry so infrastructure packages can fetch a component-scoped logger
// without threading it through every constructor:
//
//	log := logger.Get("coordinator")
//	log.Info("plugin registered", map[string]interface{}{"plugin": name})
package logger

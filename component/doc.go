// Package component defines the lifecycle contract for stateful modules.
//
// A Component is anything that must be started before serving and stopped on
// shutdown: database connections, redis clients, background sweepers, the
// HTTP server. The Registry starts components in registration order and
// stops them in reverse, so dependencies are registered first.
package component

// Package server provides the HTTP host for the identity provider: a Gin
// engine behind an h2c-wrapped http.Server, the standard middleware stack
// (recovery, request-id, CORS, body-size limit, request logging, optional
// rate limiting), and the system endpoints (/health, /ready, /alive,
// /info, /version, /metrics). The coordinator mounts its interaction and
// plugin routes on the engine this package owns.
package server

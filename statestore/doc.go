// Package statestore provides the TTL and capacity bounded ephemeral store
// that protects multi-step login handshakes against CSRF and replay.
//
// Entries expire lazily on read plus via a periodic background sweep, and
// insertion at capacity evicts the oldest-inserted live entry. Consume is
// the one-time read path: a consumed, expired, missing, or forged key all
// resolve identically to "absent".
package statestore

// Package redisstore implements the persistence adapter on Redis. Records
// are JSON strings with native TTLs, so no background sweep is needed.
// Secondary indexes are plain keys pointing at the record id, except the
// grant index which is a set of full record keys so a single revocation
// can cascade across collections.
//
// A connection failure always surfaces as a NetworkError; it is never
// collapsed into "not found", which would silently break the one-time-use
// guarantee on codes and tokens.
package redisstore

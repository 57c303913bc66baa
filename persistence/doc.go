// Package persistence defines the storage contract the OpenID Connect
// protocol engine uses for all of its durable state: sessions,
// authorization codes, access and refresh tokens, device codes, and
// grants.
//
// Records are opaque JSON payloads addressed by (collection, id). Three
// secondary keys may be present in a payload (userCode, uid, grantId) and
// are indexed automatically on upsert. Backends must behave identically;
// the kit ships an embedded relational backend (sqlstore) and a networked
// cache backend (redisstore), selected by configuration.
package persistence

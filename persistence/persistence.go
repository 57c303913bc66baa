package persistence

import (
	"context"
	"time"
)

// Payload is an opaque JSON object stored by the protocol engine. The
// adapter never interprets it beyond extracting secondary keys.
type Payload map[string]interface{}

// ConsumedField is the payload field a backend merges into a consumed
// record's payload. Its value is the consumption time in unix seconds.
const ConsumedField = "consumed"

// Secondary key field names recognized in payloads.
const (
	FieldUserCode = "userCode"
	FieldUID      = "uid"
	FieldGrantID  = "grantId"
)

// SecondaryKeys holds the indexable keys extracted from a payload. Empty
// fields mean the payload does not carry that key.
type SecondaryKeys struct {
	UserCode string
	UID      string
	GrantID  string
}

// ExtractKeys pulls the secondary keys out of a payload. Non-string
// values are ignored.
func ExtractKeys(p Payload) SecondaryKeys {
	var keys SecondaryKeys
	if v, ok := p[FieldUserCode].(string); ok {
		keys.UserCode = v
	}
	if v, ok := p[FieldUID].(string); ok {
		keys.UID = v
	}
	if v, ok := p[FieldGrantID].(string); ok {
		keys.GrantID = v
	}
	return keys
}

// Adapter is the storage contract for a single logical collection
// (e.g. "Session", "AccessToken", "Grant"). All operations are atomic at
// the granularity of a single id: concurrent Consume calls on the same id
// observe the payload exactly once between them.
//
// "Not found" and "error" are distinct outcomes. A nil payload with a nil
// error means the record is absent or expired; an infrastructure failure
// always surfaces as a non-nil error, never as an empty result.
type Adapter interface {
	// Upsert inserts or fully replaces the record for id, clearing any
	// previous consumed mark. Secondary-index entries for userCode, uid,
	// and grantId found in the payload are created or refreshed with the
	// same expiry. expiresIn <= 0 means no expiry.
	Upsert(ctx context.Context, id string, payload Payload, expiresIn time.Duration) error

	// Find returns the payload for id, or nil if absent or expired. A
	// consumed record is still returned (with its consumed mark merged
	// into the payload) until it expires naturally.
	Find(ctx context.Context, id string) (Payload, error)

	// FindByUserCode resolves the userCode index to an id, then behaves
	// as Find.
	FindByUserCode(ctx context.Context, userCode string) (Payload, error)

	// FindByUid resolves the uid index to an id, then behaves as Find.
	FindByUid(ctx context.Context, uid string) (Payload, error)

	// Consume returns the payload and marks the record consumed, exactly
	// once. A second call, or a call on an absent, expired, or
	// already-consumed record, returns nil. The record keeps its
	// remaining TTL; it is flagged, not deleted.
	Consume(ctx context.Context, id string) (Payload, error)

	// Destroy deletes the record and every secondary-index entry
	// derivable from its own payload. Destroying an absent record is a
	// no-op.
	Destroy(ctx context.Context, id string) error

	// RevokeByGrantID deletes every record registered under the grant's
	// index set, then the index itself. The cascade crosses collections:
	// revoking a grant removes its sessions, codes, and tokens alike.
	RevokeByGrantID(ctx context.Context, grantID string) error
}

// Provider hands out collection-scoped adapters backed by a single
// storage backend.
type Provider interface {
	Adapter(collection string) Adapter
}

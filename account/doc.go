// Package account defines the user account model and repository contract.
//
// Account ids are deterministic: the id is the SHA-256 hex digest of
// "method:externalId", so the same external identity always maps to the
// same account without a prior lookup. Deriving the id before the
// existence check is the concurrency mechanism behind FindOrCreate —
// concurrent creations for one identity collapse onto one primary key and
// the backing store's insert-or-use-existing semantics resolve the race,
// no lock required. Accounts with no linked method get a random id.
package account

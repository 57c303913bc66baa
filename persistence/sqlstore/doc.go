// Package sqlstore implements the persistence adapter on a relational
// database through GORM. All collections share one flat table; secondary
// keys are queried inline out of the JSON payload column rather than kept
// in separate index tables. Works against embedded SQLite and networked
// PostgreSQL without behavioral differences.
package sqlstore

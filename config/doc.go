// Package config loads and validates the identity provider's
// configuration. Values come from a YAML file plus environment overrides
// (optionally via a .env file); the root Config assembles every
// component's config struct and selects the persistence and account
// backends.
package config

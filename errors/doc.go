// Package errors provides unified error handling for the identity kit.
// It implements structured error types with error codes, HTTP status mapping,
// and retryable detection following RFC 7807.
//
// Codes fall into five categories: request errors (user-correctable,
// surfaced verbatim), authentication errors (surfaced with a retry hint),
// protocol-state errors (surfaced with a start-over hint), configuration
// errors (deployment mistakes) and infrastructure errors (logged with full
// cause chain, surfaced as a generic retry-later message).
package errors

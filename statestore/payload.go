package statestore

import (
	"time"

	"github.com/authweave/idkit/auth/password"
)

// OAuthState is the payload stored before redirecting a browser to a
// plugin's external step. The random key it is stored under doubles as the
// CSRF token; the handshake is only trusted after the key resolves and is
// consumed exactly once.
type OAuthState struct {
	// InteractionID ties the handshake back to the protocol engine's
	// interaction.
	InteractionID string `json:"interactionId"`

	// Method is the plugin that initiated the handshake.
	Method string `json:"method"`

	// CreatedAt is when the handshake started.
	CreatedAt time.Time `json:"createdAt"`

	// Metadata carries method-specific extras (PKCE verifier, nonce, ...).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuthOutcome is the payload stored after a plugin authenticates a user,
// keyed by a fresh one-time token that the completion path resolves.
type AuthOutcome struct {
	// AccountID is the authenticated account.
	AccountID string `json:"accountId"`

	// CreatedAt is when authentication succeeded.
	CreatedAt time.Time `json:"createdAt"`
}

// NewToken creates a cryptographically secure random 256-bit token,
// hex-encoded (64 characters). Used both as the CSRF state key and as the
// one-time outcome key.
func NewToken() (string, error) {
	return password.GenerateToken(32)
}

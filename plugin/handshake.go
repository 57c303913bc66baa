package plugin

import "github.com/authweave/idkit/statestore"

// HandshakeAPI is the coordinator's one-time state surface, used by
// multi-step plugins to protect their external handshakes against CSRF
// and replay. Tokens are single-use: resolving one consumes it.
type HandshakeAPI interface {
	// NewHandshake stores handshake state and returns its one-time
	// token, which doubles as the CSRF state parameter.
	NewHandshake(interactionID, method string, metadata map[string]string) (string, error)

	// ResumeHandshake resolves and consumes a handshake token. Missing,
	// expired, consumed, and forged tokens all fail identically.
	ResumeHandshake(token string) (*statestore.OAuthState, error)

	// StashOutcome stores a successful authentication under a fresh
	// one-time token for the completion path.
	StashOutcome(accountID string) (string, error)
}

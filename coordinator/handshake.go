package coordinator

import (
	"time"

	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/statestore"
)

// NewHandshake stores handshake state under a fresh random token and
// returns the token. The token doubles as the CSRF state parameter the
// plugin carries through its external step.
func (c *Coordinator) NewHandshake(interactionID, method string, metadata map[string]string) (string, error) {
	token, err := statestore.NewToken()
	if err != nil {
		return "", errors.Internal(err)
	}
	c.state.Set(token, &statestore.OAuthState{
		InteractionID: interactionID,
		Method:        method,
		CreatedAt:     time.Now(),
		Metadata:      metadata,
	}, c.cfg.StateTTL)
	return token, nil
}

// ResumeHandshake resolves and consumes a handshake token. Missing,
// expired, already-consumed, and forged tokens are indistinguishable:
// all fail with InvalidState.
func (c *Coordinator) ResumeHandshake(token string) (*statestore.OAuthState, error) {
	payload, ok := c.state.Consume(token)
	if !ok {
		return nil, errors.InvalidState()
	}
	st, ok := payload.(*statestore.OAuthState)
	if !ok {
		return nil, errors.InvalidState()
	}
	return st, nil
}

// StashOutcome stores a successful authentication under a fresh one-time
// token for the completion path to resolve.
func (c *Coordinator) StashOutcome(accountID string) (string, error) {
	token, err := statestore.NewToken()
	if err != nil {
		return "", errors.Internal(err)
	}
	c.state.Set(token, &statestore.AuthOutcome{
		AccountID: accountID,
		CreatedAt: time.Now(),
	}, c.cfg.OutcomeTTL)
	return token, nil
}

// ResolveOutcome consumes an outcome token and returns the account id.
// A second resolution of the same token fails with InvalidState.
func (c *Coordinator) ResolveOutcome(token string) (string, error) {
	payload, ok := c.state.Consume(token)
	if !ok {
		return "", errors.InvalidState()
	}
	outcome, ok := payload.(*statestore.AuthOutcome)
	if !ok {
		return "", errors.InvalidState()
	}
	return outcome.AccountID, nil
}

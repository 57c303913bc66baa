// Package engine is the boundary to the external OpenID Connect protocol
// engine. The engine owns authorization codes, tokens, consent, and
// discovery; the coordinator drives it through this small contract and
// answers its account lookups.
package engine

import (
	"context"

	"github.com/authweave/idkit/account"
)

// Interaction is a pending login the protocol engine is waiting on.
type Interaction struct {
	// UID identifies the interaction in engine state and URLs.
	UID string

	// Prompt is what the engine needs ("login", "consent").
	Prompt string

	// ClientID is the relying party that started the flow.
	ClientID string

	// ReturnTo is where the browser resumes the protocol flow.
	ReturnTo string

	// Params carries the original authorization-request parameters.
	Params map[string]interface{}
}

// Engine is implemented by the external protocol engine.
type Engine interface {
	// Interaction returns the pending interaction for uid.
	Interaction(ctx context.Context, uid string) (*Interaction, error)

	// FinishLogin completes the interaction's login step with the
	// authenticated account and returns where to send the browser.
	FinishLogin(ctx context.Context, uid, accountID string) (redirectTo string, err error)
}

// AccountFinder is the callback contract the engine uses to resolve the
// subject of a session or token. The coordinator implements it.
type AccountFinder interface {
	FindAccount(ctx context.Context, accountID string) (*account.Account, error)
}

// ClaimsFor maps an account to its OpenID Connect claims for the
// requested scopes. The "sub" claim is always present; the rest follow
// the standard scope groupings.
func ClaimsFor(a *account.Account, scopes []string) map[string]interface{} {
	claims := map[string]interface{}{"sub": a.ID}
	for _, scope := range scopes {
		switch scope {
		case "profile":
			if a.Username != "" {
				claims["preferred_username"] = a.Username
			}
			if a.DisplayName != "" {
				claims["name"] = a.DisplayName
			}
			if a.AvatarURL != "" {
				claims["picture"] = a.AvatarURL
			}
			claims["updated_at"] = a.UpdatedAt.Unix()
		case "email":
			if a.Email != "" {
				claims["email"] = a.Email
				claims["email_verified"] = a.EmailVerified
			}
		case "phone":
			if a.Phone != "" {
				claims["phone_number"] = a.Phone
				claims["phone_number_verified"] = a.PhoneVerified
			}
		case "groups":
			if len(a.Groups) > 0 {
				claims["groups"] = a.Groups
			}
		}
	}
	return claims
}

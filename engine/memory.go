package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/authweave/idkit/errors"
	"github.com/authweave/idkit/persistence"
)

// Memory is a development stand-in for the external protocol engine. It
// keeps pending interactions in a persistence collection so login flows
// can be exercised end to end without a real OIDC engine in front.
type Memory struct {
	interactions persistence.Adapter
	ttl          time.Duration
}

var _ Engine = (*Memory)(nil)

// NewMemory creates a development engine storing interactions through the
// given adapter, typically Provider.Adapter("Interaction").
func NewMemory(interactions persistence.Adapter) *Memory {
	return &Memory{interactions: interactions, ttl: time.Hour}
}

// NewInteraction registers a pending login and returns its uid.
func (m *Memory) NewInteraction(ctx context.Context, clientID, returnTo string, params map[string]interface{}) (string, error) {
	uid := uuid.NewString()
	payload := persistence.Payload{
		"uid":      uid,
		"prompt":   "login",
		"clientId": clientID,
		"returnTo": returnTo,
	}
	if len(params) > 0 {
		payload["params"] = params
	}
	if err := m.interactions.Upsert(ctx, uid, payload, m.ttl); err != nil {
		return "", err
	}
	return uid, nil
}

// Interaction returns the pending interaction for uid.
func (m *Memory) Interaction(ctx context.Context, uid string) (*Interaction, error) {
	payload, err := m.interactions.Find(ctx, uid)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.NotFound("interaction", uid)
	}

	it := &Interaction{UID: uid}
	if v, ok := payload["prompt"].(string); ok {
		it.Prompt = v
	}
	if v, ok := payload["clientId"].(string); ok {
		it.ClientID = v
	}
	if v, ok := payload["returnTo"].(string); ok {
		it.ReturnTo = v
	}
	if v, ok := payload["params"].(map[string]interface{}); ok {
		it.Params = v
	}
	return it, nil
}

// FinishLogin closes the interaction and sends the browser back to the
// relying party.
func (m *Memory) FinishLogin(ctx context.Context, uid, accountID string) (string, error) {
	payload, err := m.interactions.Consume(ctx, uid)
	if err != nil {
		return "", err
	}
	if payload == nil {
		return "", errors.NotFound("interaction", uid)
	}

	returnTo, _ := payload["returnTo"].(string)
	if returnTo == "" {
		returnTo = "/"
	}
	return returnTo, nil
}

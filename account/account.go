package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/authweave/idkit/auth/password"
)

// Account is a user account created by an authentication method.
// (AuthMethod, ExternalID) is unique and immutable after creation; ID
// never changes.
type Account struct {
	ID            string                 `json:"id"`
	Username      string                 `json:"username,omitempty"`
	DisplayName   string                 `json:"display_name,omitempty"`
	Email         string                 `json:"email,omitempty"`
	EmailVerified bool                   `json:"email_verified"`
	Phone         string                 `json:"phone,omitempty"`
	PhoneVerified bool                   `json:"phone_verified"`
	AvatarURL     string                 `json:"avatar_url,omitempty"`
	AuthMethod    string                 `json:"auth_method,omitempty"`
	ExternalID    string                 `json:"external_id,omitempty"`
	Disabled      bool                   `json:"disabled"`
	Groups        []string               `json:"groups,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Clone returns a deep copy so callers can never mutate stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Groups != nil {
		out.Groups = append([]string(nil), a.Groups...)
	}
	if a.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(a.Metadata))
		for k, v := range a.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// DeriveID computes the deterministic account id for an external
// identity: the SHA-256 hex digest of "method:externalId".
func DeriveID(method, externalID string) string {
	return password.HashSHA256(method + ":" + externalID)
}

// RandomID returns a random account id for accounts with no linked
// authentication method.
func RandomID() string {
	return uuid.NewString()
}

// Profile carries the identity claims an authentication method learned
// about a user. FindOrCreate refreshes these onto the account on every
// login; ID, AuthMethod, ExternalID, and CreatedAt are never touched.
type Profile struct {
	Username      string
	DisplayName   string
	Email         string
	EmailVerified bool
	Phone         string
	PhoneVerified bool
	AvatarURL     string
	Groups        []string
	Metadata      map[string]interface{}
}

// Apply refreshes the profile onto an account. Non-empty scalar fields
// overwrite, a non-nil Groups slice replaces the set, and Metadata is
// merged key-wise.
func (p Profile) Apply(a *Account) {
	if p.Username != "" {
		a.Username = p.Username
	}
	if p.DisplayName != "" {
		a.DisplayName = p.DisplayName
	}
	if p.Email != "" {
		a.Email = p.Email
		a.EmailVerified = p.EmailVerified
	}
	if p.Phone != "" {
		a.Phone = p.Phone
		a.PhoneVerified = p.PhoneVerified
	}
	if p.AvatarURL != "" {
		a.AvatarURL = p.AvatarURL
	}
	if p.Groups != nil {
		a.Groups = append([]string(nil), p.Groups...)
	}
	if len(p.Metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]interface{}, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			a.Metadata[k] = v
		}
	}
}

// NewFromIdentity constructs a fresh account for an external identity
// with the deterministic id and the profile applied.
func NewFromIdentity(method, externalID string, profile Profile, now time.Time) *Account {
	a := &Account{
		ID:         DeriveID(method, externalID),
		AuthMethod: method,
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	profile.Apply(a)
	return a
}

// Changes is a partial update; nil fields are left untouched. A non-nil
// Groups pointer replaces the set and Metadata entries are merged
// key-wise.
type Changes struct {
	Username      *string
	DisplayName   *string
	Email         *string
	EmailVerified *bool
	Phone         *string
	PhoneVerified *bool
	AvatarURL     *string
	Disabled      *bool
	Groups        *[]string
	Metadata      map[string]interface{}
}

// Apply writes the changed fields onto an account.
func (c Changes) Apply(a *Account) {
	if c.Username != nil {
		a.Username = *c.Username
	}
	if c.DisplayName != nil {
		a.DisplayName = *c.DisplayName
	}
	if c.Email != nil {
		a.Email = *c.Email
	}
	if c.EmailVerified != nil {
		a.EmailVerified = *c.EmailVerified
	}
	if c.Phone != nil {
		a.Phone = *c.Phone
	}
	if c.PhoneVerified != nil {
		a.PhoneVerified = *c.PhoneVerified
	}
	if c.AvatarURL != nil {
		a.AvatarURL = *c.AvatarURL
	}
	if c.Disabled != nil {
		a.Disabled = *c.Disabled
	}
	if c.Groups != nil {
		a.Groups = append([]string(nil), *c.Groups...)
	}
	if len(c.Metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]interface{}, len(c.Metadata))
		}
		for k, v := range c.Metadata {
			a.Metadata[k] = v
		}
	}
}

// Touch advances UpdatedAt to strictly after the previous value, so two
// rapid updates can never carry equal timestamps.
func (a *Account) Touch(now time.Time) {
	if !now.After(a.UpdatedAt) {
		now = a.UpdatedAt.Add(time.Nanosecond)
	}
	a.UpdatedAt = now
}

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/authweave/idkit/account"
	"github.com/authweave/idkit/errors"
)

// identity is what resolveIdentity extracts from the provider: the stable
// subject plus whatever profile claims were present.
type identity struct {
	Subject string
	Profile account.Profile
}

// resolveIdentity turns an access token into the external identity. The
// userinfo endpoint is authoritative when configured; the ID token fills
// in only when userinfo is absent or omits the subject. ID-token claims
// are read without signature verification: the token arrived over the
// code-exchange channel directly from the provider, which is the trust
// anchor here.
func (p *Plugin) resolveIdentity(ctx context.Context, token *oauth2.Token) (*identity, error) {
	claims := map[string]interface{}{}

	if p.cfg.UserinfoURL != "" {
		fetched, err := p.fetchUserinfo(ctx, token)
		if err != nil {
			return nil, err
		}
		claims = fetched
	}

	if _, ok := claims["sub"]; !ok {
		if rawID, ok := token.Extra("id_token").(string); ok && rawID != "" {
			idClaims := jwt.MapClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(rawID, idClaims); err == nil {
				for k, v := range idClaims {
					if _, exists := claims[k]; !exists {
						claims[k] = v
					}
				}
			}
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.UserinfoFetchFailed(p.cfg.Name, fmt.Errorf("no sub claim in userinfo or id_token"))
	}

	return &identity{Subject: sub, Profile: profileFromClaims(claims)}, nil
}

func (p *Plugin) fetchUserinfo(ctx context.Context, token *oauth2.Token) (map[string]interface{}, error) {
	client := p.oauth.Client(ctx, token)
	resp, err := client.Get(p.cfg.UserinfoURL)
	if err != nil {
		return nil, errors.UserinfoFetchFailed(p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.UserinfoFetchFailed(p.cfg.Name,
			fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, string(body)))
	}

	var claims map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, errors.UserinfoFetchFailed(p.cfg.Name, err)
	}
	return claims, nil
}

// profileFromClaims maps standard OIDC claims onto the account profile.
// Unrecognized claims are preserved in Metadata so plugins downstream can
// still reach provider-specific fields.
func profileFromClaims(claims map[string]interface{}) account.Profile {
	p := account.Profile{
		Username:      stringClaim(claims, "preferred_username"),
		DisplayName:   stringClaim(claims, "name"),
		Email:         stringClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Phone:         stringClaim(claims, "phone_number"),
		PhoneVerified: boolClaim(claims, "phone_number_verified"),
		AvatarURL:     stringClaim(claims, "picture"),
	}
	if p.Username == "" {
		p.Username = stringClaim(claims, "login")
	}
	if groups, ok := claims["groups"].([]interface{}); ok {
		p.Groups = make([]string, 0, len(groups))
		for _, g := range groups {
			if s, ok := g.(string); ok {
				p.Groups = append(p.Groups, s)
			}
		}
	}

	known := map[string]bool{
		"sub": true, "preferred_username": true, "name": true, "email": true,
		"email_verified": true, "phone_number": true, "phone_number_verified": true,
		"picture": true, "groups": true, "login": true,
		"iss": true, "aud": true, "exp": true, "iat": true, "nbf": true,
		"nonce": true, "at_hash": true, "azp": true,
	}
	for k, v := range claims {
		if known[k] {
			continue
		}
		if p.Metadata == nil {
			p.Metadata = map[string]interface{}{}
		}
		p.Metadata[k] = v
	}
	return p
}

func stringClaim(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

func boolClaim(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

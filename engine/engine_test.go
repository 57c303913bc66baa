package engine

import (
	"testing"
	"time"

	"github.com/authweave/idkit/account"
)

func TestClaimsForScopes(t *testing.T) {
	a := &account.Account{
		ID:            "acct-1",
		Username:      "alice",
		DisplayName:   "Alice A.",
		Email:         "alice@example.com",
		EmailVerified: true,
		Phone:         "+15550100",
		Groups:        []string{"admins"},
		UpdatedAt:     time.Unix(1700000000, 0),
	}

	claims := ClaimsFor(a, []string{"profile", "email", "groups"})

	if claims["sub"] != "acct-1" {
		t.Errorf("sub = %v, want acct-1", claims["sub"])
	}
	if claims["preferred_username"] != "alice" || claims["name"] != "Alice A." {
		t.Errorf("profile claims missing: %v", claims)
	}
	if claims["email"] != "alice@example.com" || claims["email_verified"] != true {
		t.Errorf("email claims missing: %v", claims)
	}
	if _, ok := claims["phone_number"]; ok {
		t.Error("phone claims must not appear without the phone scope")
	}
	if groups, ok := claims["groups"].([]string); !ok || len(groups) != 1 {
		t.Errorf("groups claim = %v", claims["groups"])
	}
}

func TestClaimsForMinimal(t *testing.T) {
	claims := ClaimsFor(&account.Account{ID: "acct-2"}, []string{"openid"})
	if len(claims) != 1 || claims["sub"] != "acct-2" {
		t.Errorf("minimal claims must only carry sub, got %v", claims)
	}
}

package persistence

import "testing"

func TestExtractKeys(t *testing.T) {
	keys := ExtractKeys(Payload{
		"userCode": "WDJB-MJHT",
		"uid":      "session-1",
		"grantId":  "grant-1",
		"exp":      1234,
	})
	if keys.UserCode != "WDJB-MJHT" {
		t.Errorf("UserCode = %q, want WDJB-MJHT", keys.UserCode)
	}
	if keys.UID != "session-1" {
		t.Errorf("UID = %q, want session-1", keys.UID)
	}
	if keys.GrantID != "grant-1" {
		t.Errorf("GrantID = %q, want grant-1", keys.GrantID)
	}
}

func TestExtractKeysIgnoresNonStrings(t *testing.T) {
	keys := ExtractKeys(Payload{
		"userCode": 42,
		"uid":      nil,
		"grantId":  []string{"g1"},
	})
	if keys != (SecondaryKeys{}) {
		t.Errorf("expected empty keys, got %+v", keys)
	}
}

func TestExtractKeysAbsent(t *testing.T) {
	keys := ExtractKeys(Payload{"sub": "user-1"})
	if keys != (SecondaryKeys{}) {
		t.Errorf("expected empty keys, got %+v", keys)
	}
}

package password

import (
	"strings"
	"testing"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(WithCost(4)) // low cost keeps the test fast

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := h.Verify("correct horse battery", hash); err != nil {
		t.Errorf("Verify rejected the right password: %v", err)
	}
	if err := h.Verify("wrong password!!", hash); err == nil {
		t.Error("Verify accepted the wrong password")
	}
}

func TestBcryptHasher_TooShort(t *testing.T) {
	h := NewBcryptHasher(WithCost(4))
	if _, err := h.Hash("short"); err == nil {
		t.Error("expected a minimum-length error")
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(WithCost(4))
	if _, err := h.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("expected a bcrypt length-limit error")
	}
}

func TestGenerateToken_LengthAndUniqueness(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars for 32 bytes, got %d", len(a))
	}
	b, _ := GenerateToken(32)
	if a == b {
		t.Error("two generated tokens collided")
	}
}

func TestNewHasher_FromConfig(t *testing.T) {
	cfg := Config{BcryptCost: 4, MinLength: 4}
	h := NewHasher(cfg)
	hash, err := h.Hash("tiny")
	if err != nil {
		t.Fatalf("Hash with min_length=4 failed: %v", err)
	}
	if err := h.Verify("tiny", hash); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

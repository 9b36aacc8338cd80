package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	token, expiresAt, err := m.GenerateParticipantToken("dm-7f2a")
	if err != nil {
		t.Fatalf("GenerateParticipantToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	if remaining := time.Until(expiresAt); remaining < 23*time.Hour {
		t.Errorf("expected ~24h expiry, got %v remaining", remaining)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.ParticipantID != "dm-7f2a" {
		t.Errorf("expected participant dm-7f2a, got %q", claims.ParticipantID)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := NewManager("secret-a").GenerateParticipantToken("player-1")
	if err != nil {
		t.Fatalf("GenerateParticipantToken failed: %v", err)
	}

	if _, err := NewManager("secret-b").ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := NewManager("secret").ValidateToken("not-a-token"); err == nil {
		t.Error("expected validation to fail for malformed input")
	}
}

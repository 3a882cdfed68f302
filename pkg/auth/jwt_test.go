package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Operator != "alice" || claims.Role != RoleOperator {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	token, _ := NewJWTManager("other", time.Hour).GenerateToken("mallory")
	if _, err := NewJWTManager("secret", time.Hour).ValidateToken(token); err == nil {
		t.Fatalf("expected signature error")
	}

	expired, _ := NewJWTManager("secret", -time.Minute).GenerateToken("alice")
	if _, err := NewJWTManager("secret", time.Hour).ValidateToken(expired); err == nil {
		t.Fatalf("expected expiry error")
	}

	if _, err := NewJWTManager("secret", time.Hour).GenerateToken(""); err == nil {
		t.Fatalf("expected error for empty operator")
	}
}

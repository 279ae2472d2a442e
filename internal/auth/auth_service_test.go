package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must differ from the plain password")
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPasswordHash("wrong-pass", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	service, err := NewAuthService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token, err := service.GenerateToken(42, "hr")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
	if claims.Role != "hr" {
		t.Fatalf("role = %q, want hr", claims.Role)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	// Built directly so the token is minted already expired.
	service := &AuthService{secret: []byte("test-secret"), tokenTTL: -time.Minute}

	token, err := service.GenerateToken(1, "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := service.ValidateToken(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer, err := NewAuthService("issuer-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	verifier, err := NewAuthService("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	token, err := issuer.GenerateToken(1, "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	if _, err := NewAuthService("", time.Hour); err == nil {
		t.Fatal("empty secret accepted")
	}
}

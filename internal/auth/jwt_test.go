package auth

import (
	"strings"
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	InitializeJWT("test-secret")

	token, err := GenerateToken("01ARZ3NDEKTSV4RRFFQ69G5FAV", "tech@example.com", "TECHNICIAN")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.UserID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	}
	if claims.Email != "tech@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "tech@example.com")
	}
	if claims.Role != "TECHNICIAN" {
		t.Errorf("Role = %q, want %q", claims.Role, "TECHNICIAN")
	}
	if claims.ExpiresAt == nil {
		t.Error("ExpiresAt not set on access token")
	}
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	InitializeJWT("test-secret")

	token, err := GenerateToken("user-1", "admin@example.com", "ADMIN")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	// Flip a character in the signature segment
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %d segments", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ValidateToken(tampered); err == nil {
		t.Error("ValidateToken() accepted a tampered token")
	}
}

func TestValidateTokenRejectsDifferentSecret(t *testing.T) {
	InitializeJWT("secret-one")
	token, err := GenerateToken("user-1", "admin@example.com", "ADMIN")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	InitializeJWT("secret-two")
	if _, err := ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	InitializeJWT("")
	if _, err := GenerateToken("user-1", "a@b.c", "ADMIN"); err == nil {
		t.Error("GenerateToken() succeeded without a secret")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("HashPassword() returned plaintext")
	}

	if err := VerifyPassword("s3cret!", hash); err != nil {
		t.Errorf("VerifyPassword() rejected correct password: %v", err)
	}
	if err := VerifyPassword("wrong", hash); err == nil {
		t.Error("VerifyPassword() accepted wrong password")
	}
}

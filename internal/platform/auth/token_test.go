package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	signed, claims, err := issuer.Issue("u-1", "drsmith", "doctor")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if claims.JTI() == "" {
		t.Error("expected non-empty jti")
	}

	parsed, err := issuer.Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.UserID != "u-1" || parsed.Username != "drsmith" || parsed.Role != "doctor" {
		t.Errorf("claims mismatch: %+v", parsed)
	}
	if parsed.JTI() != claims.JTI() {
		t.Errorf("jti changed across round trip: %s != %s", parsed.JTI(), claims.JTI())
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	signed, _, err := issuer.Issue("u-1", "drsmith", "doctor")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Parse(signed); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	signed, _, err := issuer.Issue("u-1", "drsmith", "doctor")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Parse(signed); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1", Role: "admin"})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}
	if _, err := issuer.Parse(signed); err == nil {
		t.Error("expected error for alg=none token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatal("expected non-empty token and hash")
	}
	if raw == hash {
		t.Error("hash must not equal raw token")
	}
	if HashRefreshToken(raw) != hash {
		t.Error("hash is not reproducible from raw token")
	}

	raw2, _, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if raw == raw2 {
		t.Error("expected unique tokens")
	}
}

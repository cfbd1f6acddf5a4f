package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
)

func TestAdminToken_RoundTrip(t *testing.T) {
	now := time.Now()
	token, expires, err := GenerateAdminToken("s3cret", time.Hour, now)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	if !expires.After(now) {
		t.Errorf("expires = %v, want after %v", expires, now)
	}

	claims, err := ValidateAdminToken(token, "s3cret")
	if err != nil {
		t.Fatalf("ValidateAdminToken: %v", err)
	}
	if claims["role"] != "admin" {
		t.Errorf("role claim = %v", claims["role"])
	}
}

func TestAdminToken_Rejections(t *testing.T) {
	now := time.Now()
	good, _, _ := GenerateAdminToken("s3cret", time.Hour, now)
	expired, _, _ := GenerateAdminToken("s3cret", time.Hour, now.Add(-2*time.Hour))

	nonAdmin, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "visitor",
		"exp":  now.Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name, token, secret string
	}{
		{"wrong secret", good, "other"},
		{"expired", expired, "s3cret"},
		{"garbage", "not.a.jwt", "s3cret"},
		{"non-admin role", nonAdmin, "s3cret"},
		{"empty secret", good, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateAdminToken(tt.token, tt.secret); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("ValidateAdminToken = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword(correct): %v", err)
	}
	if err := CheckPassword(hash, "battery staple"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("CheckPassword(wrong) = %v", err)
	}
	if err := CheckPassword("", "anything"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("CheckPassword(no hash) = %v", err)
	}
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(empty): expected error")
	}
}

func TestGenerators(t *testing.T) {
	if _, err := ulid.Parse(GenerateULID()); err != nil {
		t.Errorf("GenerateULID not parseable: %v", err)
	}
	key, err := GenerateSecureKey(64)
	if err != nil || len(key) != 64 {
		t.Errorf("GenerateSecureKey(64) = %q, %v", key, err)
	}
	odd, _ := GenerateSecureKey(7)
	if len(odd) != 7 {
		t.Errorf("GenerateSecureKey(7) len = %d", len(odd))
	}
}

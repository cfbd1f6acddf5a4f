// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken covers malformed, expired, wrongly signed or non-admin tokens.
var ErrInvalidToken = errors.New("invalid token")

const adminRole = "admin"

// GenerateAdminToken signs an HS256 admin token valid for ttl from now.
func GenerateAdminToken(jwtSecret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if jwtSecret == "" {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	expires := now.UTC().Add(ttl)
	claims := jwt.MapClaims{
		"role": adminRole,
		"jti":  GenerateULID(),
		"iat":  now.UTC().Unix(),
		"exp":  expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, expires, nil
}

// ValidateAdminToken verifies signature, expiry and role.
func ValidateAdminToken(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("%w: no secret configured", ErrInvalidToken)
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if role, _ := claims["role"].(string); role != adminRole {
		return nil, fmt.Errorf("%w: missing admin role", ErrInvalidToken)
	}
	return claims, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrSecretNotConfigured is returned by a validator built without a secret.
var ErrSecretNotConfigured = errors.New("JWT secret not configured")

// TokenValidator checks HMAC-signed access tokens issued by the auth service.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns a validator for secret. An empty secret rejects every token.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(strings.TrimSpace(secret))}
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (v *TokenValidator) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// CanAccessStore reports whether claims grant access to storeID. Tokens with
// role "admin" reach every store; others must list the store in "store_id"
// or "store_ids".
func CanAccessStore(claims jwt.MapClaims, storeID string) bool {
	if role, _ := claims["role"].(string); role == "admin" {
		return true
	}
	if id, _ := claims["store_id"].(string); id != "" && id == storeID {
		return true
	}
	if ids, ok := claims["store_ids"].([]interface{}); ok {
		for _, raw := range ids {
			if s, _ := raw.(string); s == storeID {
				return true
			}
		}
	}
	return false
}

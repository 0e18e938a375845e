package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 24 * time.Hour

// IssueToken signs an HS256 token whose subject is the administrator (or
// doctor) id, expiring TokenTTL from now.
func IssueToken(subjectID, secret string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken checks signature and expiry and returns the embedded subject.
// Malformed, mis-signed, and expired tokens all fail with ErrInvalidToken.
// Matching the subject against the requested resource is the caller's job.
func VerifyToken(raw, secret string) (string, error) {
	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

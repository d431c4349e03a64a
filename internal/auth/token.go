package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "warden"
	tokenKind   = "session"
)

// SessionClaims is the payload of the session cookie. The level is never
// carried in the token; Authenticate reloads it on every request.
type SessionClaims struct {
	Kind   string `json:"kind"`
	UserID int64  `json:"uid"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens
type TokenManager struct {
	key    []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		key: []byte(secret),
		ttl: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// GenerateAccessToken issues a session token for userID with a random JTI
func (tm *TokenManager) GenerateAccessToken(userID int64) (string, error) {
	issued := time.Now()
	claims := SessionClaims{
		Kind:   tokenKind,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(tm.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, issuer and lifetime of a session token
func (tm *TokenManager) ValidateToken(raw string) (*SessionClaims, error) {
	var claims SessionClaims
	if _, err := tm.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return tm.key, nil
	}); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	switch {
	case claims.Kind != tokenKind:
		return nil, fmt.Errorf("unexpected token kind %q", claims.Kind)
	case claims.UserID <= 0:
		return nil, fmt.Errorf("session token has no user")
	}
	return &claims, nil
}

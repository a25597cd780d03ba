package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"topics-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer credential into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// JWTVerifier validates HS256 tokens issued by the auth service.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

type identityClaims struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token and returns the identity it carries.
func (v *JWTVerifier) Verify(_ context.Context, token string) (models.Identity, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Username == "" {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Avatar:   claims.Avatar,
	}, nil
}

// IssueToken signs a token for the identity. Used by tests and ops tooling;
// the service itself never mints tokens during attach.
func (v *JWTVerifier) IssueToken(identity models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Username: identity.Username,
		Avatar:   identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Package auth resolves the caller identity from HS256 bearer tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

// Verifier validates tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a Verifier. The secret must not be empty.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, apperr.Errorf(apperr.KindValidation, "new_verifier", "jwt secret is required")
	}
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}, nil
}

// Identity parses a bearer token and returns the identity named by its subject.
func (v *Verifier) Identity(token string) (types.Identity, error) {
	const op = "verify_token"
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return types.Identity{}, apperr.Unauthenticated(op)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.Identity{}, apperr.Errorf(apperr.KindAuth, op, "token expired")
		}
		return types.Identity{}, apperr.E(apperr.KindAuth, op, err)
	}

	id := types.Identity{UserID: claims.Subject}
	if !id.Valid() {
		return types.Identity{}, apperr.Errorf(apperr.KindAuth, op, "token has no subject")
	}
	return id, nil
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", apperr.E(apperr.KindInternal, "issue_token", err)
	}
	return signed, nil
}

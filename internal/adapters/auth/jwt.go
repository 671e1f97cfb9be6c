// Package auth verifies host bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/livestage/internal/core"
	"github.com/dkeye/livestage/internal/domain"
)

const issuer = "livestage"

// Claims is the payload of a host token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWT is an HS256 core.Authenticator.
type JWT struct {
	secret []byte
	now    func() time.Time
}

var _ core.Authenticator = (*JWT)(nil)

func NewJWT(secret string) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	return &JWT{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for userID valid for ttl.
func (a *JWT) Issue(userID domain.ParticipantID, username string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID:   string(userID),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWT) Authenticate(_ context.Context, token string) (core.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return core.Identity{}, domain.ErrTokenMissing
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.Identity{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	case err != nil:
		return core.Identity{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return core.Identity{}, fmt.Errorf("%w: missing user_id claim", domain.ErrTokenInvalid)
	}
	return core.Identity{
		AccountID: domain.ParticipantID(claims.UserID),
		Username:  claims.Username,
	}, nil
}

// Package auth validates bearer access tokens and resolves them to
// principals. Tokens are HS256 JWTs carrying a user_id claim, the
// scheme the platform's REST layer issues.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/domain"
)

// UserSource resolves a user id from a validated token to a live
// principal. Implementations report domain.ErrPrincipalNotFound when
// the referenced identity no longer exists.
type UserSource interface {
	UserByID(ctx context.Context, id domain.UserID) (domain.Principal, error)
}

type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuthenticator implements core.Authenticator. Credential validation
// is pure; identity resolution is delegated to the UserSource.
type JWTAuthenticator struct {
	secret []byte
	users  UserSource
}

func NewJWTAuthenticator(secret string, users UserSource) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), users: users}
}

// Authenticate validates the token and resolves the principal. It must
// complete before any room join; every failure is fatal to the
// connection attempt.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrMissingToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		log.Debug().Err(err).Str("module", "adapters.auth").Msg("token rejected")
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return domain.Principal{}, fmt.Errorf("%w: no user_id claim", domain.ErrInvalidToken)
	}

	p, err := a.users.UserByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.Principal{}, err
		}
		return domain.Principal{}, fmt.Errorf("resolve principal: %w", err)
	}
	return p, nil
}

// IssueToken signs an access token for the given user. Used by tests
// and by the dev seeding path; production tokens come from the REST
// layer's auth service.
func IssueToken(secret string, userID domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: int64(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

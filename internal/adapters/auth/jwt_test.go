package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/debatehub/internal/domain"
)

const testSecret = "test-secret"

type fakeUsers struct {
	users map[domain.UserID]domain.Principal
}

func (f *fakeUsers) UserByID(_ context.Context, id domain.UserID) (domain.Principal, error) {
	p, ok := f.users[id]
	if !ok {
		return domain.Principal{}, domain.ErrPrincipalNotFound
	}
	return p, nil
}

func newAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator(testSecret, &fakeUsers{
		users: map[domain.UserID]domain.Principal{
			1: {ID: 1, Username: "ada"},
		},
	})
}

func TestAuthenticateValidToken(t *testing.T) {
	a := newAuthenticator()
	token, err := IssueToken(testSecret, 1, time.Minute)
	require.NoError(t, err)

	p, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: 1, Username: "ada"}, p)
}

func TestAuthenticateMissingToken(t *testing.T) {
	a := newAuthenticator()
	_, err := a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	a := newAuthenticator()
	_, err := a.Authenticate(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	a := newAuthenticator()
	token, err := IssueToken(testSecret, 1, -time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	a := newAuthenticator()
	token, err := IssueToken("other-secret", 1, time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateUnknownPrincipal(t *testing.T) {
	a := newAuthenticator()
	token, err := IssueToken(testSecret, 99, time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
}

// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxMessageLen = 4096

var (
	ErrMissingToken      = errors.New("missing token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrPrincipalNotFound = errors.New("principal not found")
)

type UserID int64

// Principal is the authenticated identity of a connected user.
// Immutable once resolved; never persisted by the core.
type Principal struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

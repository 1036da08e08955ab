// Package core holds the connection-facing contracts and the in-process
// room fan-out and presence implementations. It never touches transport
// resources; adapters own and close their connections.
package core

import (
	"context"
	"time"

	"github.com/dkeye/debatehub/internal/domain"
)

// ConnID is the handle of one live transport session.
type ConnID string

// Conn is the outbound half of a live connection.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Authenticator validates a bearer credential and resolves the principal.
// Failure variants: domain.ErrMissingToken, domain.ErrInvalidToken,
// domain.ErrPrincipalNotFound.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// RoomLookup answers whether a debate session exists and is open.
type RoomLookup interface {
	RoomExists(ctx context.Context, id domain.RoomID) (bool, error)
}

// MessageStore durably appends chat messages. Append failures do not
// block delivery; chat is best-effort real-time.
type MessageStore interface {
	Append(ctx context.Context, roomID domain.RoomID, author domain.Principal, messageID, text string, at time.Time) error
}

// Presence is the shared per-room set of currently-connected principals.
// A principal may hold several concurrent connections; each handle is a
// distinct entry. Remove is idempotent. Implementations must be safe
// under concurrent use from independent connections.
type Presence interface {
	Add(roomID domain.RoomID, handle ConnID, p domain.Principal, at time.Time) error
	Remove(roomID domain.RoomID, handle ConnID) error
	Snapshot(roomID domain.RoomID) ([]Participant, error)
}

// PublishResult reports delivery stats to the caller.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// Broadcaster maintains the room -> live connection mapping and fans an
// event out to every subscriber, optionally excluding the sender.
// Within one room, publishes are observed in a single total order.
type Broadcaster interface {
	Subscribe(roomID domain.RoomID, handle ConnID, c Conn)
	Unsubscribe(roomID domain.RoomID, handle ConnID)
	Publish(roomID domain.RoomID, f Frame, exclude ConnID) PublishResult
	DropRoom(roomID domain.RoomID)
}

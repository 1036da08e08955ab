// Package app wires connections to the shared room state: the
// supervisor owns the join/leave transitions and the lazy per-room
// resource lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

type binding struct {
	roomID    domain.RoomID
	principal domain.Principal
	joined    bool
	cancel    context.CancelFunc
}

// Supervisor is the process-wide connection registry. A join updates
// the broadcaster and the presence registry as one logical transition;
// a leave undoes both and is idempotent. Per-room buckets are created
// on first join and released on last leave.
type Supervisor struct {
	presence core.Presence
	bcast    core.Broadcaster

	mu       sync.Mutex
	conns    map[core.ConnID]*binding
	roomSize map[domain.RoomID]int
}

func NewSupervisor(presence core.Presence, bcast core.Broadcaster) *Supervisor {
	return &Supervisor{
		presence: presence,
		bcast:    bcast,
		conns:    make(map[core.ConnID]*binding),
		roomSize: make(map[domain.RoomID]int),
	}
}

// Bind registers a connection's cancel func before any join happens so
// a shutdown can tear the connection down at any lifecycle stage.
func (s *Supervisor) Bind(handle core.ConnID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[handle] = &binding{cancel: cancel}
}

// Join attaches the connection to the room and records its presence
// entry. It returns the member snapshot as of immediately after the
// join, which includes the joiner itself.
func (s *Supervisor) Join(roomID domain.RoomID, handle core.ConnID, c core.Conn, p domain.Principal, at time.Time) ([]core.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.conns[handle]
	if !ok {
		b = &binding{}
		s.conns[handle] = b
	}
	if b.joined {
		return nil, fmt.Errorf("connection %s already joined room %d", handle, b.roomID)
	}

	s.roomSize[roomID]++
	if s.roomSize[roomID] == 1 {
		s.onFirstJoin(roomID)
	}

	s.bcast.Subscribe(roomID, handle, c)
	if err := s.presence.Add(roomID, handle, p, at); err != nil {
		s.bcast.Unsubscribe(roomID, handle)
		s.roomSize[roomID]--
		if s.roomSize[roomID] == 0 {
			s.onLastLeave(roomID)
		}
		return nil, fmt.Errorf("presence add: %w", err)
	}

	b.roomID = roomID
	b.principal = p
	b.joined = true

	members, err := s.presence.Snapshot(roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.supervisor").Int64("room", int64(roomID)).Msg("snapshot after join")
	}
	log.Info().Str("module", "app.supervisor").Int64("room", int64(roomID)).Str("conn", string(handle)).Int64("user", int64(p.ID)).Msg("joined room")
	return members, nil
}

// Leave removes the connection from the room and the registry. Safe to
// call for a connection that never joined or already left; reports
// whether an active membership was actually torn down, along with the
// refreshed member snapshot for the departure broadcast.
func (s *Supervisor) Leave(handle core.ConnID) (domain.RoomID, domain.Principal, []core.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.conns[handle]
	delete(s.conns, handle)
	if !ok || !b.joined {
		return 0, domain.Principal{}, nil, false
	}

	if err := s.presence.Remove(b.roomID, handle); err != nil {
		log.Error().Err(err).Str("module", "app.supervisor").Int64("room", int64(b.roomID)).Msg("presence remove")
	}
	s.bcast.Unsubscribe(b.roomID, handle)

	s.roomSize[b.roomID]--
	if s.roomSize[b.roomID] <= 0 {
		delete(s.roomSize, b.roomID)
		s.onLastLeave(b.roomID)
	}

	members, err := s.presence.Snapshot(b.roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.supervisor").Int64("room", int64(b.roomID)).Msg("snapshot after leave")
	}
	log.Info().Str("module", "app.supervisor").Int64("room", int64(b.roomID)).Str("conn", string(handle)).Int64("user", int64(b.principal.ID)).Msg("left room")
	return b.roomID, b.principal, members, true
}

// Participants exposes the presence snapshot for administrative reads.
func (s *Supervisor) Participants(roomID domain.RoomID) ([]core.Participant, error) {
	return s.presence.Snapshot(roomID)
}

// Publish forwards to the room broadcaster.
func (s *Supervisor) Publish(roomID domain.RoomID, f core.Frame, exclude core.ConnID) core.PublishResult {
	return s.bcast.Publish(roomID, f, exclude)
}

// Shutdown cancels every live connection.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.conns))
	for _, b := range s.conns {
		if b.cancel != nil {
			cancels = append(cancels, b.cancel)
		}
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	log.Info().Str("module", "app.supervisor").Int("connections", len(cancels)).Msg("shutdown: canceled live connections")
}

func (s *Supervisor) onFirstJoin(roomID domain.RoomID) {
	log.Info().Str("module", "app.supervisor").Int64("room", int64(roomID)).Msg("room opened")
}

func (s *Supervisor) onLastLeave(roomID domain.RoomID) {
	s.bcast.DropRoom(roomID)
	log.Info().Str("module", "app.supervisor").Int64("room", int64(roomID)).Msg("room released")
}

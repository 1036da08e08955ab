package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/domain"
)

// roomSubs is the live subscription set of one room. The mutex is held
// for the whole of a publish so that subscribers observe a single total
// order of events per room.
type roomSubs struct {
	mu    sync.Mutex
	conns map[ConnID]Conn
}

// RoomBroadcaster is the in-process Broadcaster. Rooms are created
// lazily on first subscribe; per-room locking only, cross-room
// operations never coordinate.
type RoomBroadcaster struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomSubs
}

func NewRoomBroadcaster() *RoomBroadcaster {
	return &RoomBroadcaster{rooms: make(map[domain.RoomID]*roomSubs)}
}

func (b *RoomBroadcaster) room(id domain.RoomID) *roomSubs {
	b.mu.RLock()
	r, ok := b.rooms[id]
	b.mu.RUnlock()
	if ok {
		return r
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok = b.rooms[id]; ok {
		return r
	}
	r = &roomSubs{conns: make(map[ConnID]Conn)}
	b.rooms[id] = r
	return r
}

func (b *RoomBroadcaster) Subscribe(roomID domain.RoomID, handle ConnID, c Conn) {
	r := b.room(roomID)
	r.mu.Lock()
	r.conns[handle] = c
	r.mu.Unlock()
	log.Debug().Str("module", "core.broadcast").Int64("room", int64(roomID)).Str("conn", string(handle)).Msg("subscribed")
}

// Unsubscribe removes the handle from the room. Removing an absent
// handle is a no-op.
func (b *RoomBroadcaster) Unsubscribe(roomID domain.RoomID, handle ConnID) {
	b.mu.RLock()
	r, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.conns, handle)
	r.mu.Unlock()
	log.Debug().Str("module", "core.broadcast").Int64("room", int64(roomID)).Str("conn", string(handle)).Msg("unsubscribed")
}

// Publish delivers f to every current subscriber of the room except
// exclude. Delivery is non-blocking; a closed or saturated subscriber
// is dropped silently.
func (b *RoomBroadcaster) Publish(roomID domain.RoomID, f Frame, exclude ConnID) PublishResult {
	b.mu.RLock()
	r, ok := b.rooms[roomID]
	b.mu.RUnlock()
	res := PublishResult{}
	if !ok {
		return res
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for handle, c := range r.conns {
		if handle == exclude {
			continue
		}
		if err := c.TrySend(f); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	if res.Dropped > 0 {
		log.Warn().Str("module", "core.broadcast").Int64("room", int64(roomID)).Int("dropped", res.Dropped).Msg("slow or dead subscribers skipped")
	}
	return res
}

// DropRoom releases the subscription set of an empty room. Called by
// the supervisor on last leave.
func (b *RoomBroadcaster) DropRoom(roomID domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, roomID)
}

// RoomCount reports the number of live room buckets.
func (b *RoomBroadcaster) RoomCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms)
}

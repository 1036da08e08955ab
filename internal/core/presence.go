package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/debatehub/internal/domain"
)

type presenceEntry struct {
	principal   domain.Principal
	connectedAt time.Time
}

// MemoryPresence is the single-process Presence registry: per-room
// buckets behind one lock, snapshots ordered by connect time. For a
// fleet the Redis-backed registry in adapters/presence replaces it.
type MemoryPresence struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[ConnID]presenceEntry
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[domain.RoomID]map[ConnID]presenceEntry)}
}

func (p *MemoryPresence) Add(roomID domain.RoomID, handle ConnID, pr domain.Principal, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket, ok := p.rooms[roomID]
	if !ok {
		bucket = make(map[ConnID]presenceEntry)
		p.rooms[roomID] = bucket
	}
	bucket[handle] = presenceEntry{principal: pr, connectedAt: at}
	return nil
}

// Remove is idempotent; removing an absent member is a no-op. The room
// bucket is released once its last entry goes.
func (p *MemoryPresence) Remove(roomID domain.RoomID, handle ConnID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	delete(bucket, handle)
	if len(bucket) == 0 {
		delete(p.rooms, roomID)
	}
	return nil
}

func (p *MemoryPresence) Snapshot(roomID domain.RoomID) ([]Participant, error) {
	p.mu.RLock()
	bucket := p.rooms[roomID]
	type row struct {
		part Participant
		at   time.Time
		id   ConnID
	}
	rows := make([]row, 0, len(bucket))
	for handle, e := range bucket {
		rows = append(rows, row{
			part: Participant{ID: e.principal.ID, Username: e.principal.Username, IsOnline: true},
			at:   e.connectedAt,
			id:   handle,
		})
	}
	p.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].at.Equal(rows[j].at) {
			return rows[i].id < rows[j].id
		}
		return rows[i].at.Before(rows[j].at)
	})
	out := make([]Participant, len(rows))
	for i, r := range rows {
		out[i] = r.part
	}
	return out, nil
}

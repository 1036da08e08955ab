// Package presence provides the Redis-backed Presence registry so a
// fleet of server processes observes one membership set per room.
// Presence is advisory: eventual consistency across processes is
// acceptable, message delivery never depends on it.
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

const defaultTTL = time.Hour

type entry struct {
	Handle      string        `json:"handle"`
	UserID      domain.UserID `json:"id"`
	Username    string        `json:"username"`
	ConnectedAt time.Time     `json:"connected_at"`
}

// RedisPresence stores each room's participant list as a JSON array
// under one key. Mutations are read-modify-write serialized by a
// per-process mutex; cross-process races lose at most an advisory
// entry until the next mutation rewrites the list.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration

	mu sync.Mutex
}

func NewRedisPresence(client *redis.Client) *RedisPresence {
	return &RedisPresence{client: client, ttl: defaultTTL}
}

func key(roomID domain.RoomID) string {
	return fmt.Sprintf("debate_participants_%d", roomID)
}

func (p *RedisPresence) load(ctx context.Context, roomID domain.RoomID) ([]entry, error) {
	raw, err := p.client.Get(ctx, key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presence get room %d: %w", roomID, err)
	}
	var list []entry
	if err := json.Unmarshal(raw, &list); err != nil {
		log.Warn().Err(err).Str("module", "adapters.presence").Int64("room", int64(roomID)).Msg("corrupt participant list, resetting")
		return nil, nil
	}
	return list, nil
}

func (p *RedisPresence) store(ctx context.Context, roomID domain.RoomID, list []entry) error {
	if len(list) == 0 {
		if err := p.client.Del(ctx, key(roomID)).Err(); err != nil {
			return fmt.Errorf("presence del room %d: %w", roomID, err)
		}
		return nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("presence marshal room %d: %w", roomID, err)
	}
	if err := p.client.Set(ctx, key(roomID), raw, p.ttl).Err(); err != nil {
		return fmt.Errorf("presence set room %d: %w", roomID, err)
	}
	return nil
}

func (p *RedisPresence) Add(roomID domain.RoomID, handle core.ConnID, pr domain.Principal, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx := context.Background()

	list, err := p.load(ctx, roomID)
	if err != nil {
		return err
	}
	// re-add for the same handle replaces the entry
	kept := list[:0]
	for _, e := range list {
		if e.Handle != string(handle) {
			kept = append(kept, e)
		}
	}
	kept = append(kept, entry{Handle: string(handle), UserID: pr.ID, Username: pr.Username, ConnectedAt: at})
	return p.store(ctx, roomID, kept)
}

// Remove is idempotent: an absent handle leaves the list untouched.
func (p *RedisPresence) Remove(roomID domain.RoomID, handle core.ConnID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ctx := context.Background()

	list, err := p.load(ctx, roomID)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, e := range list {
		if e.Handle != string(handle) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return p.store(ctx, roomID, kept)
}

func (p *RedisPresence) Snapshot(roomID domain.RoomID) ([]core.Participant, error) {
	list, err := p.load(context.Background(), roomID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Participant, 0, len(list))
	for _, e := range list {
		out = append(out, core.Participant{ID: e.UserID, Username: e.Username, IsOnline: true})
	}
	return out, nil
}

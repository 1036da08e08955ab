package presence

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/debatehub/internal/core"
	"github.com/dkeye/debatehub/internal/domain"
)

func newTestPresence(t *testing.T) (*RedisPresence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisPresence(client), mr
}

func TestRedisPresenceAddAndSnapshot(t *testing.T) {
	p, _ := newTestPresence(t)

	require.NoError(t, p.Add(42, "c1", domain.Principal{ID: 1, Username: "ada"}, time.Now()))
	require.NoError(t, p.Add(42, "c2", domain.Principal{ID: 2, Username: "bob"}, time.Now()))

	members, err := p.Snapshot(42)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, core.Participant{ID: 1, Username: "ada", IsOnline: true}, members[0])
	assert.Equal(t, core.Participant{ID: 2, Username: "bob", IsOnline: true}, members[1])
}

func TestRedisPresenceKeyNaming(t *testing.T) {
	p, mr := newTestPresence(t)
	require.NoError(t, p.Add(42, "c1", domain.Principal{ID: 1, Username: "ada"}, time.Now()))

	// the key scheme is shared with the platform's REST layer
	assert.True(t, mr.Exists("debate_participants_42"))
}

func TestRedisPresenceRemoveIdempotent(t *testing.T) {
	p, mr := newTestPresence(t)
	require.NoError(t, p.Add(42, "c1", domain.Principal{ID: 1, Username: "ada"}, time.Now()))

	require.NoError(t, p.Remove(42, "c1"))
	require.NoError(t, p.Remove(42, "c1"))
	require.NoError(t, p.Remove(99, "ghost"))

	members, err := p.Snapshot(42)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.False(t, mr.Exists("debate_participants_42"), "empty room key is deleted")
}

func TestRedisPresenceReAddReplacesHandle(t *testing.T) {
	p, _ := newTestPresence(t)
	ada := domain.Principal{ID: 1, Username: "ada"}

	require.NoError(t, p.Add(42, "c1", ada, time.Now()))
	require.NoError(t, p.Add(42, "c1", ada, time.Now()))

	members, err := p.Snapshot(42)
	require.NoError(t, err)
	assert.Len(t, members, 1, "re-adding a handle replaces its entry")
}

func TestRedisPresenceMultipleConnectionsPerUser(t *testing.T) {
	p, _ := newTestPresence(t)
	ada := domain.Principal{ID: 1, Username: "ada"}

	require.NoError(t, p.Add(42, "c1", ada, time.Now()))
	require.NoError(t, p.Add(42, "c2", ada, time.Now()))

	members, err := p.Snapshot(42)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRedisPresenceSnapshotEmptyRoom(t *testing.T) {
	p, _ := newTestPresence(t)
	members, err := p.Snapshot(7)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestRedisPresenceCorruptListReset(t *testing.T) {
	p, mr := newTestPresence(t)
	require.NoError(t, mr.Set("debate_participants_42", "not-json"))

	require.NoError(t, p.Add(42, "c1", domain.Principal{ID: 1, Username: "ada"}, time.Now()))
	members, err := p.Snapshot(42)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/checkpoint"
	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/meeting"
)

func snapshot(id, user string) checkpoint.Snapshot {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return checkpoint.Snapshot{
		SessionID: id,
		UserID:    user,
		Language:  "fr",
		State:     "active",
		History: []conversation.Turn{
			conversation.UserTurn("Je suis triste", now),
			conversation.AssistantTurn("Je suis là pour vous.", now.Add(time.Second)),
		},
		Call:           meeting.Handle{ID: "call-" + id, Platform: meeting.PlatformMock, CreatedAt: now},
		CreatedAt:      now,
		LastActivityAt: now.Add(time.Second),
		UpdatedAt:      now.Add(time.Second),
	}
}

// exercise runs the Store contract against one driver.
func exercise(t *testing.T, store checkpoint.Store) {
	t.Helper()
	ctx := context.Background()

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	s1, s2 := snapshot("s1", "u1"), snapshot("s2", "u2")
	require.NoError(t, store.Save(ctx, s1))
	require.NoError(t, store.Save(ctx, s2))

	s1.State = "idle"
	s1.History = append(s1.History, conversation.UserTurn("encore", s1.UpdatedAt))
	require.NoError(t, store.Save(ctx, s1), "save replaces")

	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[string]checkpoint.Snapshot{}
	for _, s := range all {
		byID[s.SessionID] = s
	}
	got := byID["s1"]
	assert.Equal(t, "idle", got.State)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "fr", got.Language)
	assert.Len(t, got.History, 3)
	assert.Equal(t, conversation.RoleAssistant, got.History[1].Role)
	assert.Equal(t, "call-s1", got.Call.ID)
	assert.True(t, got.LastActivityAt.Equal(s1.LastActivityAt))

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "missing"), "deleting a missing snapshot succeeds")

	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "s2", all[0].SessionID)

	require.NoError(t, store.Close())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.json")
	exercise(t, checkpoint.NewFileStore(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	require.NoError(t, checkpoint.NewFileStore(path).Save(ctx, snapshot("s1", "u1")))

	all, err := checkpoint.NewFileStore(path).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "s1", all[0].SessionID)
}

func TestSQLiteStore(t *testing.T) {
	store, err := checkpoint.OpenSQLite(filepath.Join(t.TempDir(), "companion.db"), nil)
	require.NoError(t, err)
	exercise(t, store)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := checkpoint.OpenRedis(context.Background(), "redis://"+mr.Addr(), "test:")
	require.NoError(t, err)
	exercise(t, store)
}

func TestRedisStoreSkipsVanishedValues(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	store, err := checkpoint.OpenRedis(ctx, "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, snapshot("s1", "u1")))
	mr.Del(checkpoint.DefaultKeyPrefix + "s1")

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := checkpoint.Open(ctx, checkpoint.Config{})
	require.NoError(t, err)
	assert.IsType(t, checkpoint.Nop{}, s)

	s, err = checkpoint.Open(ctx, checkpoint.Config{Driver: checkpoint.DriverFile, Path: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.FileStore{}, s)

	_, err = checkpoint.Open(ctx, checkpoint.Config{Driver: "mongo"})
	assert.ErrorIs(t, err, checkpoint.ErrUnknownDriver)

	s, err = checkpoint.Open(ctx, checkpoint.Config{Driver: checkpoint.DriverRedis, RedisURL: "not a url"})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var n checkpoint.Nop
	require.NoError(t, n.Save(ctx, snapshot("s1", "u1")))
	all, err := n.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func appendPair(t *testing.T, b *Buffer, i int) {
	t.Helper()
	require.NoError(t, b.Append(UserTurn(fmt.Sprintf("u%d", i), t0)))
	require.NoError(t, b.Append(AssistantTurn(fmt.Sprintf("a%d", i), t0)))
}

func texts(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Text
	}
	return out
}

func TestBuffer(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		b := NewBuffer(5)
		assert.Equal(t, 0, b.Len())
		assert.False(t, b.Open())
		assert.Empty(t, b.Turns())
	})

	t.Run("keeps pairs in order", func(t *testing.T) {
		b := NewBuffer(5)
		appendPair(t, b, 1)
		appendPair(t, b, 2)
		assert.Equal(t, []string{"u1", "a1", "u2", "a2"}, texts(b.Turns()))
		assert.Equal(t, 4, b.Len())
	})

	t.Run("evicts oldest pair at capacity", func(t *testing.T) {
		b := NewBuffer(5)
		for i := 1; i <= 6; i++ {
			appendPair(t, b, i)
		}
		assert.Equal(t, 10, b.Len())
		assert.Equal(t,
			[]string{"u2", "a2", "u3", "a3", "u4", "a4", "u5", "a5", "u6", "a6"},
			texts(b.Turns()))
	})

	t.Run("never exceeds twice capacity", func(t *testing.T) {
		b := NewBuffer(3)
		for i := 0; i < 50; i++ {
			appendPair(t, b, i)
			assert.LessOrEqual(t, b.Len(), 6)
		}
		assert.Equal(t, []string{"u47", "a47", "u48", "a48", "u49", "a49"}, texts(b.Turns()))
	})

	t.Run("open pair is visible", func(t *testing.T) {
		b := NewBuffer(5)
		appendPair(t, b, 1)
		require.NoError(t, b.Append(UserTurn("pending", t0)))
		assert.True(t, b.Open())
		assert.Equal(t, []string{"u1", "a1", "pending"}, texts(b.Turns()))
	})

	t.Run("new user turn supersedes open one", func(t *testing.T) {
		b := NewBuffer(5)
		require.NoError(t, b.Append(UserTurn("failed", t0)))
		require.NoError(t, b.Append(UserTurn("retry", t0)))
		require.NoError(t, b.Append(AssistantTurn("reply", t0)))
		assert.Equal(t, []string{"retry", "reply"}, texts(b.Turns()))
	})

	t.Run("open pair at capacity does not evict", func(t *testing.T) {
		b := NewBuffer(2)
		appendPair(t, b, 1)
		require.NoError(t, b.Append(UserTurn("x", t0)))
		require.NoError(t, b.Append(UserTurn("y", t0)))
		assert.Equal(t, []string{"u1", "a1", "y"}, texts(b.Turns()))
	})

	t.Run("rejects unpaired assistant turn", func(t *testing.T) {
		b := NewBuffer(5)
		assert.ErrorIs(t, b.Append(AssistantTurn("hi", t0)), ErrUnpairedTurn)
		appendPair(t, b, 1)
		assert.ErrorIs(t, b.Append(AssistantTurn("again", t0)), ErrUnpairedTurn)
	})

	t.Run("rejects invalid turns", func(t *testing.T) {
		b := NewBuffer(5)
		assert.ErrorIs(t, b.Append(Turn{Role: "system", Text: "x"}), ErrInvalidRole)
		assert.ErrorIs(t, b.Append(UserTurn("   ", t0)), ErrEmptyTurn)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("reset", func(t *testing.T) {
		b := NewBuffer(2)
		appendPair(t, b, 1)
		b.Reset()
		assert.Equal(t, 0, b.Len())
		appendPair(t, b, 2)
		assert.Equal(t, []string{"u2", "a2"}, texts(b.Turns()))
	})
}

func TestStore(t *testing.T) {
	t.Run("sessions are independent", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Append("a", UserTurn("hello", t0)))
		require.NoError(t, s.Append("b", UserTurn("hola", t0)))
		require.NoError(t, s.Append("b", AssistantTurn("¿qué tal?", t0)))

		assert.Equal(t, 1, s.Len("a"))
		assert.Equal(t, 2, s.Len("b"))
		assert.Equal(t, 2, s.Sessions())
	})

	t.Run("snapshot of unknown session", func(t *testing.T) {
		s := NewStore()
		assert.Empty(t, s.Snapshot("missing"))
		assert.Equal(t, 0, s.Sessions())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Append("a", UserTurn("hello", t0)))
		snap := s.Snapshot("a")
		snap[0].Text = "mutated"
		assert.Equal(t, "hello", s.Snapshot("a")[0].Text)
	})

	t.Run("restore keeps newest pairs", func(t *testing.T) {
		s := NewStore(WithPairs(2))
		var turns []Turn
		for i := 1; i <= 3; i++ {
			turns = append(turns, UserTurn(fmt.Sprintf("u%d", i), t0), AssistantTurn(fmt.Sprintf("a%d", i), t0))
		}
		require.NoError(t, s.Restore("a", turns))
		assert.Equal(t, []string{"u2", "a2", "u3", "a3"}, texts(s.Snapshot("a")))
	})

	t.Run("restore rejects broken sequences", func(t *testing.T) {
		s := NewStore()
		err := s.Restore("a", []Turn{AssistantTurn("orphan", t0)})
		assert.ErrorIs(t, err, ErrUnpairedTurn)
	})

	t.Run("drop", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Append("a", UserTurn("hello", t0)))
		s.Drop("a")
		assert.Equal(t, 0, s.Len("a"))
	})

	t.Run("invalid depth falls back to default", func(t *testing.T) {
		s := NewStore(WithPairs(0))
		assert.Equal(t, DefaultPairs, s.Pairs())
	})

	t.Run("concurrent sessions", func(t *testing.T) {
		s := NewStore(WithPairs(5))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for j := 0; j < 30; j++ {
					_ = s.Append(id, UserTurn("u", t0))
					_ = s.Append(id, AssistantTurn("a", t0))
				}
			}(fmt.Sprintf("s%d", i))
		}
		wg.Wait()
		for i := 0; i < 20; i++ {
			assert.Equal(t, 10, s.Len(fmt.Sprintf("s%d", i)))
		}
	})
}

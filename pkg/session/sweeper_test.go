package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/session"
)

func TestSweeperSchedule(t *testing.T) {
	h := newHarness(t, nil)

	_, err := session.NewSweeper(h.manager, "every now and then", nil)
	assert.Error(t, err)

	s, err := session.NewSweeper(h.manager, "", nil)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

func TestSweeperRun(t *testing.T) {
	h := newHarness(t, nil)
	id := h.start(t, "u1").SessionID

	s, err := session.NewSweeper(h.manager, "@every 1h", nil)
	require.NoError(t, err)

	h.clock.Advance(3 * time.Minute)
	s.Run()

	info, err := h.manager.Info(id)
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, info.State)

	_, err = h.manager.ProcessUtterance(context.Background(), id, []byte("hello again"))
	require.NoError(t, err)
}

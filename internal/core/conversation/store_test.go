package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/botdesk/internal/core"
)

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, ok, err := s.Load(ctx, "bot", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	st := State{ChatbotID: "bot", SessionID: "s1", UserTurns: 2}
	require.NoError(t, s.Save(ctx, st))

	got, ok, err := s.Load(ctx, "bot", "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	_, ok, _ = s.Load(ctx, "other-bot", "s1")
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "bot", "s1"))
	_, ok, _ = s.Load(ctx, "bot", "s1")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, State{ChatbotID: "bot", SessionID: "s1"}))
	now = now.Add(2 * time.Minute)

	_, ok, err := s.Load(ctx, "bot", "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_RejectsMissingSession(t *testing.T) {
	err := NewMemoryStore(time.Minute).Save(context.Background(), State{ChatbotID: "bot"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

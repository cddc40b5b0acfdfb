package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
)

func TestStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := Open(path, logger.Discard())
	t.Cleanup(func() { _ = s.Close() })
	require.True(t, s.Persistent())

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, "run-1", llm.User("I'm hungry")))
	require.NoError(t, s.Record(ctx, "run-2", llm.User("other run")))
	require.NoError(t, s.Record(ctx, "run-1", llm.Assistant("Any allergies?")))

	got := s.List(ctx, "run-1")
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "I'm hungry", got[0].Content)
	assert.Equal(t, "assistant", got[1].Role)
	assert.Less(t, got[0].ID, got[1].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	// Reopening the same file keeps what was written.
	require.NoError(t, s.Close())
	reopened := Open(path, logger.Discard())
	t.Cleanup(func() { _ = reopened.Close() })
	assert.Len(t, reopened.List(ctx, "run-1"), 2)
}

func TestStore_MemoryOnly(t *testing.T) {
	s := Open("", logger.Discard())
	require.False(t, s.Persistent())

	ctx := context.Background()
	s.Save(ctx, Message{SessionID: "a", Role: "user", Content: "hi"})
	s.Save(ctx, Message{SessionID: "b", Role: "user", Content: "yo"})

	got := s.List(ctx, "a")
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
	assert.Empty(t, s.List(ctx, "missing"))
	assert.NoError(t, s.Close())
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "conv.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append("user", "first", nil))
	require.NoError(t, s.Append("assistant", "second", map[string]string{"turn": "t-1"}))
	require.NoError(t, s.Append("user", "third", nil))

	entries, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Chronological order, newest last.
	assert.Equal(t, "second", entries[0].Content)
	assert.Equal(t, "third", entries[1].Content)
	assert.Equal(t, "t-1", entries[0].Metadata["turn"])
}

func TestRecentEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "conv.db"))
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

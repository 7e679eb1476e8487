package scid

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BookkeepingStore {
	t.Helper()
	dir := t.TempDir()
	return NewBookkeepingStore(filepath.Join(dir, "commodity_settings.json"), dir)
}

func TestEnsureSymbolCreatesDefault(t *testing.T) {
	store := newTestStore(t)

	record, err := store.EnsureSymbol("ES")
	require.NoError(t, err)

	assert.Equal(t, int64(0), record.LastParsedOffset)
	assert.False(t, record.InitialLoadDone)
	assert.Empty(t, record.LastParsedTimestamp)
	assert.Equal(t, "ES.scid", filepath.Base(record.FilePath))
}

func TestEnsureSymbolIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.EnsureSymbol("NQ")
	require.NoError(t, err)
	require.NoError(t, store.UpdateAfterParse("NQ", 96, "2024-03-15T14:30:02Z"))

	// Re-ensuring must not reset the advanced position.
	record, err := store.EnsureSymbol("NQ")
	require.NoError(t, err)
	assert.Equal(t, int64(96), record.LastParsedOffset)
	assert.True(t, record.InitialLoadDone)
}

func TestUpdateAfterParsePersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commodity_settings.json")

	store := NewBookkeepingStore(path, dir)
	_, err := store.EnsureSymbol("CL")
	require.NoError(t, err)
	require.NoError(t, store.UpdateAfterParse("CL", 136, "2024-03-15T14:30:01Z"))

	// New store over the same document simulates a process restart.
	reopened := NewBookkeepingStore(path, dir)
	record, ok, err := reopened.Get("CL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(136), record.LastParsedOffset)
	assert.Equal(t, "2024-03-15T14:30:01Z", record.LastParsedTimestamp)
}

func TestUpdateAfterParseRejectsBackwardOffset(t *testing.T) {
	store := newTestStore(t)

	_, err := store.EnsureSymbol("GC")
	require.NoError(t, err)
	require.NoError(t, store.UpdateAfterParse("GC", 176, "2024-03-15T14:30:02Z"))

	err = store.UpdateAfterParse("GC", 96, "2024-03-15T14:30:00Z")
	assert.Error(t, err)
}

func TestUpdateAfterParseUnknownSymbol(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.UpdateAfterParse("ZB", 96, ""))
}

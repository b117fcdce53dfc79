package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/indica/backend/internal/session"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	record := session.Record{ID: "s-1", ReferralCode: "ABC123", CreatedAt: created, ExpiresAt: created.Add(2 * time.Hour)}
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStorePruneExpired(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, session.Record{ID: "old", ReferralCode: "A", CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, session.Record{ID: "new", ReferralCode: "B", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	removed, err := store.PruneExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestStoreReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, session.Record{ID: "s-1", ReferralCode: "ABC", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC", got.ReferralCode)
}

func TestStoreRejectsBlankFields(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.Save(context.Background(), session.Record{ReferralCode: "A"}))
	assert.Error(t, store.Save(context.Background(), session.Record{ID: "x"}))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

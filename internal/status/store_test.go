package status

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	require.Error(t, err)
}

func TestStore_UpdateAbortsOnError(t *testing.T) {
	store, err := NewStore(OpenMemoryDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	doc := &Document{UID: "u1", CaseID: "c1", Context: "x", Active: ActiveState, UploadTimestamp: time.Now()}
	require.NoError(t, store.Insert(ctx, doc))

	boom := errors.New("boom")
	_, err = store.Update(ctx, "u1", func(d *Document) error {
		d.Context = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Context)
}

func TestStore_DuplicateInsert(t *testing.T) {
	store, err := NewStore(OpenMemoryDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	doc := &Document{UID: "u1", CaseID: "c1", Active: ActiveState}
	require.NoError(t, store.Insert(ctx, doc))
	assert.Error(t, store.Insert(ctx, doc))
}

func TestStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store, err := NewStore(db)
	require.NoError(t, err)
	// Applying the schema twice is harmless.
	_, err = NewStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &Document{UID: "u1", CaseID: "c1", Active: ActiveState}))
	_, err = store.Get(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}

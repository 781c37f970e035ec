package lob

import (
	"context"
	"testing"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := fstest.New()
	store := NewObjectStore(fs, "bucket", "run-1", nil)

	require.NoError(t, SaveBlob(ctx, store, "blob", NewBlob([]byte{0xde, 0xad, 0xbe, 0xef})))
	require.NoError(t, SaveClob(ctx, store, "clob", NewClob("grüße")))
	assert.Contains(t, fs.Keys(), "bucket/run-1/blob")

	b, err := LoadBlob(ctx, store, "blob")
	require.NoError(t, err)
	got, err := b.Bytes(1, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got)

	c, err := LoadClob(ctx, store, "clob")
	require.NoError(t, err)
	n, err := c.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = store.Load(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, fs.Keys())
}

func TestSaveBlob_Freed(t *testing.T) {
	b := NewBlob([]byte("x"))
	require.NoError(t, b.Free())

	err := SaveBlob(context.Background(), NewMemStore(), "k", b)
	assert.True(t, errs.IsClosed(err))
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	data := []byte("payload")
	require.NoError(t, s.Save(ctx, "k", data))
	data[0] = 'X'

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, s.Remove(ctx, "k"))
	_, err = s.Load(ctx, "k")
	assert.True(t, errs.IsNotFound(err))
}

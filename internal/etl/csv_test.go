package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStoreWritesPartitions(t *testing.T) {
	base := filepath.Join(t.TempDir(), "export")
	store := NewCSVStore(models.AdapterConfig{DBType: "csv", Database: base, Table: "calllog"}, 2)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "", models.Record{"id": int64(1), "number": int64(4), "duration": 1.5}))
	require.NoError(t, store.Insert(ctx, "", models.Record{"id": int64(2), "number": int64(5), "duration": 2.0}))
	require.NoError(t, store.Insert(ctx, "", models.Record{"id": int64(3), "number": int64(4)}))
	require.NoError(t, store.CommitAll(ctx))

	data, err := os.ReadFile(store.Path("calllog"))
	require.NoError(t, err)
	assert.Equal(t, "1.5,1,4\n2,2,5\n,3,4\n", string(data))
}

func TestCSVStoreQueryFieldsOrderColumns(t *testing.T) {
	base := filepath.Join(t.TempDir(), "export")
	store := NewCSVStore(models.AdapterConfig{Database: base, Table: "t", QueryFields: []string{"b", "a"}}, 0)
	ctx := context.Background()

	ts := time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, "p", models.Record{"a": "x,y", "b": ts}))
	require.NoError(t, store.CommitAll(ctx))

	data, err := os.ReadFile(base + "_p")
	require.NoError(t, err)
	assert.Equal(t, "2014-04-01T00:00:00Z,\"x,y\"\n", string(data))
}

func TestCSVStoreIsWriteOnly(t *testing.T) {
	store := NewCSVStore(models.AdapterConfig{Database: filepath.Join(t.TempDir(), "x"), Table: "t"}, 0)
	ctx := context.Background()

	_, err := store.QueryAll(ctx, Query{})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	require.NoError(t, store.CommitAll(ctx))
	assert.ErrorIs(t, store.Insert(ctx, "t", models.Record{"a": int64(1)}), ErrClosedAdapter)
	assert.NoError(t, store.Close(ctx))
}

package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFlush struct {
	calls map[string][]int
	fail  error
}

func (r *recordingFlush) flush(_ context.Context, partition string, rows []models.Record) error {
	if r.fail != nil {
		return r.fail
	}
	if r.calls == nil {
		r.calls = make(map[string][]int)
	}
	r.calls[partition] = append(r.calls[partition], len(rows))
	return nil
}

func TestInsertBatchFlushesWhenFull(t *testing.T) {
	ctx := context.Background()
	rec := &recordingFlush{}
	b := NewInsertBatch("test", 3, rec.flush)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Add(ctx, "p", models.Record{"i": int64(i)}))
	}
	assert.Equal(t, []int{3}, rec.calls["p"], "exactly one flush at the batch size")
	assert.Equal(t, 0, b.Pending("p"))

	require.NoError(t, b.CommitAll(ctx))
	assert.Equal(t, []int{3}, rec.calls["p"], "nothing left to flush on commit")
	assert.Equal(t, 1, b.Flushes)
	assert.Equal(t, 3, b.Written)
}

func TestInsertBatchCommitFlushesRemainder(t *testing.T) {
	ctx := context.Background()
	rec := &recordingFlush{}
	b := NewInsertBatch("test", 2, rec.flush)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Add(ctx, "a", models.Record{"i": int64(i)}))
	}
	require.NoError(t, b.Add(ctx, "b", models.Record{"i": int64(9)}))
	assert.Equal(t, 1, b.Pending("a"))
	assert.Equal(t, 1, b.Pending("b"))

	require.NoError(t, b.CommitAll(ctx))
	assert.Equal(t, []int{2, 2, 1}, rec.calls["a"])
	assert.Equal(t, []int{1}, rec.calls["b"])
	assert.Equal(t, 6, b.Written)
}

func TestInsertBatchClosedAfterCommit(t *testing.T) {
	ctx := context.Background()
	b := NewInsertBatch("test", 10, (&recordingFlush{}).flush)

	require.NoError(t, b.CommitAll(ctx))
	assert.True(t, b.Closed())
	assert.ErrorIs(t, b.Add(ctx, "p", models.Record{}), ErrClosedAdapter)
	assert.ErrorIs(t, b.CommitAll(ctx), ErrClosedAdapter)
}

func TestInsertBatchFlushError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	b := NewInsertBatch("test", 10, (&recordingFlush{fail: boom}).flush)

	require.NoError(t, b.Add(ctx, "a", models.Record{}))
	require.NoError(t, b.Add(ctx, "b", models.Record{}))
	err := b.CommitAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

package etl

import (
	"context"
	"fmt"
	"sort"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/hashicorp/go-multierror"
)

// FlushFunc writes one partition's buffered rows to the backing store.
type FlushFunc func(ctx context.Context, partition string, rows []models.Record) error

// InsertBatch buffers rows per partition and hands them to a FlushFunc when
// a buffer reaches the batch size or on CommitAll. After CommitAll it
// rejects further rows.
type InsertBatch struct {
	name    string
	size    int
	flush   FlushFunc
	buffers map[string][]models.Record
	closed  bool

	Flushes int
	Written int
}

func NewInsertBatch(name string, size int, flush FlushFunc) *InsertBatch {
	if size <= 0 {
		size = 1
	}
	return &InsertBatch{
		name:    name,
		size:    size,
		flush:   flush,
		buffers: make(map[string][]models.Record),
	}
}

// Add buffers rec for partition and flushes that partition when full.
func (b *InsertBatch) Add(ctx context.Context, partition string, rec models.Record) error {
	if b.closed {
		return fmt.Errorf("%s: insert into %s: %w", b.name, partition, ErrClosedAdapter)
	}
	b.buffers[partition] = append(b.buffers[partition], rec)
	if len(b.buffers[partition]) >= b.size {
		return b.flushPartition(ctx, partition)
	}
	return nil
}

// Pending returns the number of unflushed rows for partition.
func (b *InsertBatch) Pending(partition string) int {
	return len(b.buffers[partition])
}

// Closed reports whether CommitAll has been called.
func (b *InsertBatch) Closed() bool {
	return b.closed
}

// CommitAll flushes every partition in name order. It may run once.
func (b *InsertBatch) CommitAll(ctx context.Context) error {
	if b.closed {
		return fmt.Errorf("%s: commit: %w", b.name, ErrClosedAdapter)
	}
	b.closed = true

	partitions := make([]string, 0, len(b.buffers))
	for p := range b.buffers {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	var errs *multierror.Error
	for _, p := range partitions {
		if err := b.flushPartition(ctx, p); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (b *InsertBatch) flushPartition(ctx context.Context, partition string) error {
	rows := b.buffers[partition]
	if len(rows) == 0 {
		return nil
	}
	if err := b.flush(ctx, partition, rows); err != nil {
		return fmt.Errorf("%s: flush %d rows into %s: %w", b.name, len(rows), partition, err)
	}
	b.buffers[partition] = nil
	b.Flushes++
	b.Written += len(rows)
	logger.Infof("Inserted %d rows into %s/%s", len(rows), b.name, partition)
	return nil
}

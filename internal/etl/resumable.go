package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
)

const (
	// CheckpointPartition holds one {scan_id: n} record per successful run.
	CheckpointPartition = "last_scan_ids"
	CheckpointField     = "scan_id"

	// DefaultPartitionLayout buckets rows by month, e.g. "march_2014".
	DefaultPartitionLayout = "January_2006"
)

// ResumableImporter only pulls rows with an id above the last checkpoint,
// routes rows into time-bucketed partitions and records the new high-water
// mark after a successful run.
type ResumableImporter struct {
	*Importer

	Checkpoints     Store
	IDField         string
	TimestampField  string
	PartitionLayout string

	last    int64
	current int64
}

func NewResumableImporter(im *Importer, checkpoints Store, idField, timestampField, layout string) *ResumableImporter {
	if idField == "" {
		idField = "id"
	}
	if timestampField == "" {
		timestampField = "timestamp"
	}
	if layout == "" {
		layout = DefaultPartitionLayout
	}
	return &ResumableImporter{
		Importer:        im,
		Checkpoints:     checkpoints,
		IDField:         idField,
		TimestampField:  timestampField,
		PartitionLayout: layout,
	}
}

// Checkpoint returns the highest id seen so far in this run.
func (r *ResumableImporter) Checkpoint() int64 { return r.current }

func (r *ResumableImporter) Run(ctx context.Context) error {
	last, err := ReadCheckpoint(ctx, r.Checkpoints)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	r.last, r.current = last, last
	r.Log.Infof("Resuming after %s=%d", r.IDField, last)

	r.Query.After = &Predicate{Field: r.IDField, Value: last}
	r.Observe = r.observe
	r.Partitioner = r.partition

	if err := r.Importer.Run(ctx); err != nil {
		return err
	}
	if r.DryRun || r.current <= r.last {
		return nil
	}

	if err := r.Checkpoints.Insert(ctx, CheckpointPartition, models.Record{CheckpointField: r.current}); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := r.Checkpoints.CommitAll(ctx); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	r.Log.Infof("Checkpoint advanced from %d to %d", r.last, r.current)
	return nil
}

// observe tracks the max id of every source row, whatever happens to the
// row downstream.
func (r *ResumableImporter) observe(rec models.Record) {
	v, ok := rec.Get(r.IDField)
	if !ok {
		r.Log.Warnf("Record without %s field", r.IDField)
		return
	}
	id, err := utils.ToInt64(v)
	if err != nil {
		r.Log.Warnf("Record with unusable %s: %v", r.IDField, err)
		return
	}
	if id > r.current {
		r.current = id
	}
}

func (r *ResumableImporter) partition(rec models.Record) (string, error) {
	v, ok := rec.Get(r.TimestampField)
	if !ok {
		return "", fmt.Errorf("record has no %s field", r.TimestampField)
	}
	ts, err := utils.ToTime(v)
	if err != nil {
		return "", err
	}
	return PartitionFor(ts, r.PartitionLayout), nil
}

// PartitionFor formats a timestamp into its partition name.
func PartitionFor(ts time.Time, layout string) string {
	return strings.ToLower(ts.UTC().Format(layout))
}

// ReadCheckpoint returns the largest scan_id stored in store, or 0. The
// projection is explicit so the store's query_fields never apply.
func ReadCheckpoint(ctx context.Context, store Store) (int64, error) {
	cursor, err := store.QueryAll(ctx, Query{
		Partition: CheckpointPartition,
		Fields:    []string{CheckpointField},
	})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var last int64
	for cursor.Next(ctx) {
		v, ok := cursor.Record().Get(CheckpointField)
		if !ok {
			continue
		}
		id, err := utils.ToInt64(v)
		if err != nil {
			continue
		}
		if id > last {
			last = id
		}
	}
	return last, cursor.Err()
}

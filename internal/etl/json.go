package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
	"github.com/goccy/go-json"
)

// DefaultJSONBatchSize bounds rows per partition rewrite.
const DefaultJSONBatchSize = 10000

// JSONStore keeps partitions in memory. A source_file seeds the default
// partition; when Database names a directory every partition is loaded from
// and persisted to <dir>/<partition>.json. The directory is created on the
// first flush.
type JSONStore struct {
	Config models.AdapterConfig

	partitions map[string][]models.Record
	batch      *InsertBatch
}

func NewJSONStore(cfg models.AdapterConfig, batchSize int) (*JSONStore, error) {
	if batchSize <= 0 {
		batchSize = DefaultJSONBatchSize
	}
	j := &JSONStore{
		Config:     cfg,
		partitions: make(map[string][]models.Record),
	}
	j.batch = NewInsertBatch("json:"+cfg.Database, batchSize, j.flush)

	if cfg.SourceFile != "" {
		rows, err := readJSONRecords(cfg.SourceFile)
		if err != nil {
			return nil, err
		}
		j.partitions[cfg.Table] = rows
	}
	return j, nil
}

func (j *JSONStore) DefaultPartition() string { return j.Config.Table }

func (j *JSONStore) partitionPath(partition string) string {
	return filepath.Join(j.Config.Database, partition+".json")
}

func (j *JSONStore) load(partition string) ([]models.Record, error) {
	if rows, ok := j.partitions[partition]; ok {
		return rows, nil
	}
	if j.Config.Database == "" {
		return nil, nil
	}
	rows, err := readJSONRecords(j.partitionPath(partition))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.partitions[partition] = rows
	return rows, nil
}

// Partition returns a copy of every committed row in partition.
func (j *JSONStore) Partition(partition string) ([]models.Record, error) {
	rows, err := j.load(partition)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (j *JSONStore) QueryAll(_ context.Context, q Query) (Cursor, error) {
	partition := q.Partition
	if partition == "" {
		partition = j.Config.Table
	}
	rows, err := j.load(partition)
	if err != nil {
		return nil, err
	}
	fields := q.Fields
	if len(fields) == 0 {
		fields = j.Config.QueryFields
	}

	type keyed struct {
		id  int64
		rec models.Record
	}
	selected := make([]keyed, 0, len(rows))
	for _, r := range rows {
		var id int64
		if q.After != nil {
			v, ok := r.Get(q.After.Field)
			if !ok {
				continue
			}
			if id, err = utils.ToInt64(v); err != nil || id <= q.After.Value {
				continue
			}
		}
		selected = append(selected, keyed{id: id, rec: project(r, fields)})
	}
	if q.After != nil {
		sort.SliceStable(selected, func(a, b int) bool { return selected[a].id < selected[b].id })
	}

	out := make([]models.Record, len(selected))
	for i, k := range selected {
		out[i] = k.rec
	}
	return &sliceCursor{rows: out, pos: -1}, nil
}

func project(r models.Record, fields []string) models.Record {
	if len(fields) == 0 {
		return r.Clone()
	}
	out := make(models.Record, len(fields))
	for _, f := range fields {
		if v, ok := r.Get(f); ok {
			out[f] = v
		}
	}
	return out
}

func (j *JSONStore) Insert(ctx context.Context, partition string, rec models.Record) error {
	if partition == "" {
		partition = j.Config.Table
	}
	return j.batch.Add(ctx, partition, rec)
}

func (j *JSONStore) CommitAll(ctx context.Context) error {
	return j.batch.CommitAll(ctx)
}

func (j *JSONStore) Close(context.Context) error { return nil }

func (j *JSONStore) flush(_ context.Context, partition string, rows []models.Record) error {
	existing, err := j.load(partition)
	if err != nil {
		return err
	}
	merged := append(existing, rows...)
	if j.Config.Database != "" {
		if err := os.MkdirAll(j.Config.Database, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrStoreUnavailable, j.Config.Database, err)
		}
		if err := writeJSONRecords(j.partitionPath(partition), merged); err != nil {
			return err
		}
	}
	j.partitions[partition] = merged
	return nil
}

func readJSONRecords(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var docs []map[string]interface{}
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStoreUnavailable, path, err)
	}

	rows := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		rec := make(models.Record, len(doc))
		for k, v := range doc {
			rec[k] = utils.NormalizeValue(v)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func writeJSONRecords(path string, rows []models.Record) error {
	if rows == nil {
		rows = []models.Record{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// sliceCursor iterates over a materialized result.
type sliceCursor struct {
	rows []models.Record
	pos  int
	err  error
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.pos++
	return c.pos < len(c.rows)
}

func (c *sliceCursor) Record() models.Record { return c.rows[c.pos] }

func (c *sliceCursor) Err() error { return c.err }

func (c *sliceCursor) Close(context.Context) error { return nil }

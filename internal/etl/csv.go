package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/hashicorp/go-multierror"
)

// DefaultCSVBatchSize bounds rows per file write.
const DefaultCSVBatchSize = 100

// CSVStore appends rows to flat files named <database>_<partition>. It is
// write-only: queries fail with ErrUnsupportedOperation.
type CSVStore struct {
	Config models.AdapterConfig

	batch   *InsertBatch
	files   map[string]*os.File
	columns map[string][]string
}

func NewCSVStore(cfg models.AdapterConfig, batchSize int) *CSVStore {
	if batchSize <= 0 {
		batchSize = DefaultCSVBatchSize
	}
	c := &CSVStore{
		Config:  cfg,
		files:   make(map[string]*os.File),
		columns: make(map[string][]string),
	}
	c.batch = NewInsertBatch("csv:"+cfg.Database, batchSize, c.flush)
	return c
}

func (c *CSVStore) DefaultPartition() string { return c.Config.Table }

func (c *CSVStore) QueryAll(context.Context, Query) (Cursor, error) {
	return nil, fmt.Errorf("csv store %s: query: %w", c.Config.Database, ErrUnsupportedOperation)
}

// Path returns the file a partition is written to.
func (c *CSVStore) Path(partition string) string {
	return c.Config.Database + "_" + partition
}

func (c *CSVStore) Insert(ctx context.Context, partition string, rec models.Record) error {
	if partition == "" {
		partition = c.Config.Table
	}
	return c.batch.Add(ctx, partition, rec)
}

func (c *CSVStore) CommitAll(ctx context.Context) error {
	err := c.batch.CommitAll(ctx)
	if closeErr := c.Close(ctx); closeErr != nil {
		err = multierror.Append(err, closeErr)
	}
	return err
}

func (c *CSVStore) Close(context.Context) error {
	var errs *multierror.Error
	for name, f := range c.files {
		if err := f.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(c.files, name)
	}
	return errs.ErrorOrNil()
}

func (c *CSVStore) flush(_ context.Context, partition string, rows []models.Record) error {
	f, ok := c.files[partition]
	if !ok {
		var err error
		f, err = os.OpenFile(c.Path(partition), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("%w: open %s: %w", ErrStoreUnavailable, c.Path(partition), err)
		}
		c.files[partition] = f
	}

	columns, ok := c.columns[partition]
	if !ok {
		columns = c.Config.QueryFields
		if len(columns) == 0 {
			columns = unionColumns(rows)
		}
		c.columns[partition] = columns
	}

	w := csv.NewWriter(f)
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = formatCSVValue(row[col])
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrStoreUnavailable, c.Path(partition), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStoreUnavailable, c.Path(partition), err)
	}
	return nil
}

func formatCSVValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

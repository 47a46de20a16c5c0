package etl

import (
	"context"

	"github.com/BartekS5/rawimport/pkg/models"
)

// Predicate selects records whose Field is strictly greater than Value.
type Predicate struct {
	Field string
	Value int64
}

// Query describes one read. An empty Partition means the store's table.
type Query struct {
	Partition string
	Fields    []string
	After     *Predicate
}

// Cursor is a lazy, forward-only sequence of records.
type Cursor interface {
	Next(ctx context.Context) bool
	Record() models.Record
	Err() error
	Close(ctx context.Context) error
}

// Store is the only contract the importer has with storage.
type Store interface {
	QueryAll(ctx context.Context, q Query) (Cursor, error)
	Insert(ctx context.Context, partition string, rec models.Record) error
	CommitAll(ctx context.Context) error
	// DefaultPartition is where records go when the importer does not route them.
	DefaultPartition() string
	Close(ctx context.Context) error
}

// Mapper rewrites fields from reference tables. Map never fails: a
// missing key is a valid outcome.
type Mapper interface {
	Map(rec models.Record) models.Record
	Commit() error
}

// Expander turns one compact record into zero or more rows.
type Expander interface {
	Expand(rec models.Record) ([]models.Record, error)
}

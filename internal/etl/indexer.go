package etl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
)

// DefaultIndexFolder holds one <index>.json file per categorical index.
const DefaultIndexFolder = "indices"

type indexerState int

const (
	stateUninitialized indexerState = iota
	stateLoaded
	stateMutating
	stateSaved
)

func (s indexerState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateLoaded:
		return "loaded"
	case stateMutating:
		return "mutating"
	case stateSaved:
		return "saved"
	}
	return "unknown"
}

// Indexer encodes string field values as integers, one growing counter per
// named index. An assigned integer never changes and is never reused.
type Indexer struct {
	folder     string
	specs      []models.FieldIndexSpec
	startValue int64

	indexes  map[string]map[string]int64
	counters map[string]int64
	state    indexerState
}

type IndexerOption func(*Indexer)

// WithStartValue sets the counter of indexes that have no assignments yet;
// the first value handed out is start+1.
func WithStartValue(start int64) IndexerOption {
	return func(ix *Indexer) { ix.startValue = start }
}

func NewIndexer(folder string, specs []models.FieldIndexSpec, opts ...IndexerOption) *Indexer {
	if folder == "" {
		folder = DefaultIndexFolder
	}
	ix := &Indexer{
		folder:   folder,
		specs:    specs,
		indexes:  make(map[string]map[string]int64),
		counters: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Load reads every index file in the folder. A file that cannot be decoded
// leaves its index empty and is reported as ErrCorruptIndexFile; the
// indexer is usable either way.
func (ix *Indexer) Load() error {
	if ix.state != stateUninitialized {
		return fmt.Errorf("%w: load while %s", ErrIndexerState, ix.state)
	}
	ix.state = stateLoaded

	entries, err := os.ReadDir(ix.folder)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index folder %s: %w", ix.folder, err)
	}

	var errs *multierror.Error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		path := filepath.Join(ix.folder, e.Name())

		values, err := readIndexFile(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: %s: %w", ErrCorruptIndexFile, path, err))
			logger.Warnf("Index %s reset to empty: %v", name, err)
			continue
		}
		ix.indexes[name] = values
		ix.counters[name] = maxValue(values, ix.startValue)
	}
	return errs.ErrorOrNil()
}

func readIndexFile(path string) (map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]int64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	for k, v := range values {
		if v <= 0 {
			return nil, fmt.Errorf("value %d for %q is not positive", v, k)
		}
	}
	if values == nil {
		values = make(map[string]int64)
	}
	return values, nil
}

func maxValue(values map[string]int64, floor int64) int64 {
	m := floor
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

// IndexFields replaces every configured string field of rec with its
// integer encoding. Absent fields and non-string values are left alone, so
// running it twice over the same record changes nothing.
func (ix *Indexer) IndexFields(rec models.Record) (models.Record, error) {
	switch ix.state {
	case stateLoaded:
		ix.state = stateMutating
	case stateMutating:
	default:
		return nil, fmt.Errorf("%w: index fields while %s", ErrIndexerState, ix.state)
	}

	for _, spec := range ix.specs {
		v, ok := rec.Get(spec.Field)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		rec[spec.Field] = ix.assign(spec.Index, s)
	}
	return rec, nil
}

func (ix *Indexer) assign(index, value string) int64 {
	values, ok := ix.indexes[index]
	if !ok {
		values = make(map[string]int64)
		ix.indexes[index] = values
	}
	if n, ok := values[value]; ok {
		return n
	}
	counter, ok := ix.counters[index]
	if !ok {
		counter = ix.startValue
	}
	counter++
	ix.counters[index] = counter
	values[value] = counter
	return counter
}

// Lookup returns the integer assigned to value without assigning one.
func (ix *Indexer) Lookup(index, value string) (int64, bool) {
	n, ok := ix.indexes[index][value]
	return n, ok
}

// Counter returns the last integer handed out by index.
func (ix *Indexer) Counter(index string) int64 {
	if c, ok := ix.counters[index]; ok {
		return c
	}
	return ix.startValue
}

// Indexes lists the names of all known indexes.
func (ix *Indexer) Indexes() []string {
	names := make([]string, 0, len(ix.indexes))
	for n := range ix.indexes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Save rewrites every index file. It may run once per indexer.
func (ix *Indexer) Save() error {
	if ix.state != stateLoaded && ix.state != stateMutating {
		return fmt.Errorf("%w: save while %s", ErrIndexerState, ix.state)
	}
	if err := os.MkdirAll(ix.folder, 0o755); err != nil {
		return fmt.Errorf("create index folder %s: %w", ix.folder, err)
	}

	for _, name := range ix.Indexes() {
		data, err := json.MarshalIndent(ix.indexes[name], "", "  ")
		if err != nil {
			return fmt.Errorf("encode index %s: %w", name, err)
		}
		if err := writeFileAtomic(filepath.Join(ix.folder, name+".json"), data); err != nil {
			return fmt.Errorf("save index %s: %w", name, err)
		}
	}
	ix.state = stateSaved
	logger.Infof("Saved %d indexes to %s", len(ix.indexes), ix.folder)
	return nil
}

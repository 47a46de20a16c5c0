package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"go.uber.org/zap"
)

// Stats counts what happened to source rows during one run.
type Stats struct {
	Read      int
	Written   int
	Malformed int
	Invalid   int
	Unrouted  int
}

// Importer runs one extract → map → expand → index → load pass.
type Importer struct {
	Source  Store
	Target  Store
	Indexer *Indexer

	// Optional stages. Expanders[d] expands rows at recursion depth d.
	Mapper    Mapper
	Expanders []Expander
	Validator *Validator

	Query  Query
	DryRun bool

	// Observe sees every source row before it is processed.
	Observe func(rec models.Record)
	// Partitioner routes a source row; nil sends everything to the
	// target's default partition.
	Partitioner func(rec models.Record) (string, error)

	ProgressEvery int
	Log           *zap.SugaredLogger
	Stats         Stats
}

func NewImporter(source, target Store, indexer *Indexer) *Importer {
	return &Importer{
		Source:        source,
		Target:        target,
		Indexer:       indexer,
		ProgressEvery: 100000,
		Log:           logger.Named("importer"),
	}
}

// ProcessRow pushes one source record through the pipeline. Per-record
// problems are counted and logged; only store and indexer failures are
// returned.
func (im *Importer) ProcessRow(ctx context.Context, rec models.Record) error {
	partition := im.Target.DefaultPartition()
	if im.Partitioner != nil {
		p, err := im.Partitioner(rec)
		if err != nil {
			im.Stats.Unrouted++
			im.Log.Warnf("Skipping unroutable record: %v", err)
			return nil
		}
		partition = p
	}
	return im.processRow(ctx, rec, 0, partition)
}

func (im *Importer) processRow(ctx context.Context, rec models.Record, depth int, partition string) error {
	if im.Mapper != nil {
		rec = im.Mapper.Map(rec)
	}

	if depth < len(im.Expanders) {
		rows, err := im.Expanders[depth].Expand(rec)
		if err != nil {
			if errors.Is(err, ErrMalformedPackedField) {
				im.Stats.Malformed++
				im.Log.Debugf("Skipping unexpandable record: %v", err)
				return nil
			}
			return err
		}
		for _, row := range rows {
			if err := im.processRow(ctx, row, depth+1, partition); err != nil {
				return err
			}
		}
		return nil
	}

	if im.Validator != nil {
		if err := im.Validator.ValidateRecord(rec); err != nil {
			im.Stats.Invalid++
			im.Log.Debugf("Skipping record: %v", err)
			return nil
		}
	}

	rec, err := im.Indexer.IndexFields(rec)
	if err != nil {
		return err
	}
	if !im.DryRun {
		if err := im.Target.Insert(ctx, partition, rec); err != nil {
			return err
		}
	}
	im.Stats.Written++
	return nil
}

// Run drains the source, then saves indexes, commits the mapper and
// commits the target, in that order. A failure before the target commit
// leaves the target untouched.
func (im *Importer) Run(ctx context.Context) error {
	startTime := time.Now()
	im.Log.Infof("Starting import. After: %v, DryRun: %v", describeAfter(im.Query.After), im.DryRun)

	cursor, err := im.Source.QueryAll(ctx, im.Query)
	if err != nil {
		return fmt.Errorf("query source: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		rec := cursor.Record()
		im.Stats.Read++
		if im.Observe != nil {
			im.Observe(rec)
		}
		if err := im.ProcessRow(ctx, rec); err != nil {
			return fmt.Errorf("process row %d: %w", im.Stats.Read, err)
		}
		if im.ProgressEvery > 0 && im.Stats.Read%im.ProgressEvery == 0 {
			im.logProgress(startTime)
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("read source after %d rows: %w", im.Stats.Read, err)
	}

	if im.DryRun {
		im.Log.Infof("[DRY RUN] Would write %d records", im.Stats.Written)
		im.logProgress(startTime)
		return nil
	}

	if err := im.Indexer.Save(); err != nil {
		return fmt.Errorf("save indexes: %w", err)
	}
	if im.Mapper != nil {
		if err := im.Mapper.Commit(); err != nil {
			return fmt.Errorf("commit mapper: %w", err)
		}
	}
	if err := im.Target.CommitAll(ctx); err != nil {
		return fmt.Errorf("commit target: %w", err)
	}

	im.logProgress(startTime)
	im.Log.Info("Import finished successfully.")
	return nil
}

func (im *Importer) logProgress(startTime time.Time) {
	duration := time.Since(startTime)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(im.Stats.Read) / duration.Seconds()
	}
	im.Log.Infow("Import progress",
		"read", im.Stats.Read,
		"written", im.Stats.Written,
		"malformed", im.Stats.Malformed,
		"invalid", im.Stats.Invalid,
		"unrouted", im.Stats.Unrouted,
		"rate", fmt.Sprintf("%.2f rows/sec", rate),
	)
}

func describeAfter(p *Predicate) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%s > %d", p.Field, p.Value)
}

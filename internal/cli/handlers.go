package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/BartekS5/rawimport/internal/config"
	"github.com/BartekS5/rawimport/internal/etl"
	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/google/uuid"
)

func runImport(ctx context.Context, opts *ImportOptions) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	cfg, err := config.LoadImportConfig(configPath(opts.ConfigFile, settings))
	if err != nil {
		return err
	}
	if opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	}

	runID := uuid.NewString()
	log := logger.Named("import", "run_id", runID)

	source, err := etl.OpenStore(ctx, cfg.SourceDB, 0)
	if err != nil {
		return fmt.Errorf("open source %s: %w", cfg.SourceDB.DBType, err)
	}
	defer closeStore(ctx, "source", source)

	target, err := etl.OpenStore(ctx, cfg.TargetDB, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("open target %s: %w", cfg.TargetDB.DBType, err)
	}
	defer closeStore(ctx, "target", target)

	indexer := etl.NewIndexer(
		indexFolder(opts.IndexFolder, settings, cfg),
		cfg.FieldsToIndex,
		etl.WithStartValue(cfg.IndexStartValue),
	)
	if err := indexer.Load(); err != nil {
		if !errors.Is(err, etl.ErrCorruptIndexFile) {
			return err
		}
		log.Warnf("Continuing with reset indexes: %v", err)
	}

	im := etl.NewImporter(source, target, indexer)
	im.Log = log
	im.DryRun = opts.DryRun
	im.Query.Fields = cfg.SourceDB.QueryFields
	im.Mapper = etl.NewMapper(cfg.Mapper, etl.MapperOptions{
		References:     config.NewReferenceFiles(cfg.References),
		NumberField:    cfg.References.NumberField,
		DeviceField:    cfg.References.DeviceField,
		TimestampField: cfg.TimestampField,
	})
	if cfg.Expander != "" {
		im.Expanders = etl.NewExpanderChain(cfg.Expander)
	}
	if cfg.DataType != "" {
		v, err := etl.NewValidator(cfg.DataType)
		if err != nil {
			return err
		}
		im.Validator = v
	}

	log.Infof("Starting import %s -> %s (resumable: %v)", describeAdapter(cfg.SourceDB), describeAdapter(cfg.TargetDB), cfg.Resumable)

	if cfg.Resumable {
		checkpoints, err := etl.OpenStore(ctx, cfg.TargetDB, 0)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer closeStore(ctx, "checkpoints", checkpoints)

		r := etl.NewResumableImporter(im, checkpoints, cfg.IDField, cfg.TimestampField, cfg.PartitionLayout)
		if err := r.Run(ctx); err != nil {
			return err
		}
		log.Infof("Last imported %s: %d", cfg.IDField, r.Checkpoint())
	} else if err := im.Run(ctx); err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d records (malformed: %d, invalid: %d, unrouted: %d)\n",
		im.Stats.Written, im.Stats.Read, im.Stats.Malformed, im.Stats.Invalid, im.Stats.Unrouted)
	return nil
}

// lookupIndex returns the integer stored for value, or -1.
func lookupIndex(folder, index, value string) (int64, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return 0, err
	}
	ix := etl.NewIndexer(indexFolder(folder, settings, nil), nil)
	if err := ix.Load(); err != nil && !errors.Is(err, etl.ErrCorruptIndexFile) {
		return 0, err
	}
	if n, ok := ix.Lookup(index, value); ok {
		return n, nil
	}
	return -1, nil
}

func listIndexes(w io.Writer, folder string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	ix := etl.NewIndexer(indexFolder(folder, settings, nil), nil)
	if err := ix.Load(); err != nil && !errors.Is(err, etl.ErrCorruptIndexFile) {
		return err
	}
	for _, name := range ix.Indexes() {
		fmt.Fprintf(w, "%s\t%d\n", name, ix.Counter(name))
	}
	return nil
}

func showCheckpoint(ctx context.Context, configFile string) (int64, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return 0, err
	}
	cfg, err := config.LoadImportConfig(configPath(configFile, settings))
	if err != nil {
		return 0, err
	}
	store, err := etl.OpenStore(ctx, cfg.TargetDB, 0)
	if err != nil {
		return 0, err
	}
	defer closeStore(ctx, "target", store)
	return etl.ReadCheckpoint(ctx, store)
}

func configPath(flag string, settings *config.Settings) string {
	if flag != "" {
		return flag
	}
	return settings.Config
}

// indexFolder resolves the flag, then RAWIMPORT_INDEX_FOLDER, then the
// config file, then the default.
func indexFolder(flag string, settings *config.Settings, cfg *models.ImportConfig) string {
	switch {
	case flag != "":
		return flag
	case settings != nil && settings.IndexFolder != "":
		return settings.IndexFolder
	case cfg != nil && cfg.IndexFolder != "":
		return cfg.IndexFolder
	}
	return etl.DefaultIndexFolder
}

func describeAdapter(cfg models.AdapterConfig) string {
	return fmt.Sprintf("%s:%s/%s", cfg.DBType, cfg.Database, cfg.Table)
}

func closeStore(ctx context.Context, role string, s etl.Store) {
	if err := s.Close(ctx); err != nil {
		logger.Warnf("Failed to close %s store: %v", role, err)
	}
}

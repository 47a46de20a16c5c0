package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/rawimport/pkg/database"
	"github.com/BartekS5/rawimport/pkg/models"
)

// OpenStore connects the adapter selected by cfg.DBType. A batchSize of 0
// keeps the adapter's default.
func OpenStore(ctx context.Context, cfg models.AdapterConfig, batchSize int) (Store, error) {
	switch cfg.DBType {
	case "mysql", "sqlserver", "mssql", "sqlite", "sqlite3":
		driver, err := database.DriverName(cfg.DBType)
		if err != nil {
			return nil, err
		}
		dsn, err := database.SQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		db, err := database.ConnectSQL(ctx, driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		store, err := NewSQLStore(db, cfg, batchSize)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case "mongo", "mongodb":
		client, err := database.ConnectMongo(ctx, database.MongoURI(cfg))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return NewMongoStore(client, cfg, batchSize), nil
	case "csv":
		return NewCSVStore(cfg, batchSize), nil
	case "json":
		return NewJSONStore(cfg, batchSize)
	default:
		return nil, fmt.Errorf("%w: db_type %q", ErrUnsupportedOperation, cfg.DBType)
	}
}

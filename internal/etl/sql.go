package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/BartekS5/rawimport/pkg/models"
	"github.com/BartekS5/rawimport/pkg/utils"
)

// DefaultSQLBatchSize bounds rows per flush for SQL targets.
const DefaultSQLBatchSize = 1000

type sqlDialect struct {
	name        string
	maxParams   int
	maxRows     int // row value expressions per INSERT, 0 for no cap
	quote       func(ident string) string
	placeholder func(n int) string
}

var sqlDialects = map[string]sqlDialect{
	"mysql": {
		name:        "mysql",
		maxParams:   60000,
		quote:       func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		placeholder: func(int) string { return "?" },
	},
	"sqlserver": {
		name:        "sqlserver",
		maxParams:   2000,
		maxRows:     1000,
		quote:       func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	},
	"sqlite": {
		name:        "sqlite",
		maxParams:   30000,
		quote:       func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		placeholder: func(int) string { return "?" },
	},
}

// rowsPerStatement is how many rows of width columns fit in one INSERT.
func (d sqlDialect) rowsPerStatement(columns int) int {
	n := d.maxParams / columns
	if d.maxRows > 0 && n > d.maxRows {
		n = d.maxRows
	}
	return max(n, 1)
}

func dialectFor(dbType string) (sqlDialect, error) {
	switch dbType {
	case "mssql":
		dbType = "sqlserver"
	case "sqlite3":
		dbType = "sqlite"
	}
	d, ok := sqlDialects[dbType]
	if !ok {
		return sqlDialect{}, fmt.Errorf("%w: no SQL dialect for db_type %q", ErrUnsupportedOperation, dbType)
	}
	return d, nil
}

// SQLStore reads and writes tables through database/sql. Partitions are
// tables and must already exist.
type SQLStore struct {
	DB     *sql.DB
	Config models.AdapterConfig

	dialect sqlDialect
	batch   *InsertBatch
}

func NewSQLStore(db *sql.DB, cfg models.AdapterConfig, batchSize int) (*SQLStore, error) {
	d, err := dialectFor(cfg.DBType)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = DefaultSQLBatchSize
	}
	s := &SQLStore{DB: db, Config: cfg, dialect: d}
	s.batch = NewInsertBatch(d.name+":"+cfg.Database, batchSize, s.flush)
	return s, nil
}

func (s *SQLStore) DefaultPartition() string { return s.Config.Table }

func (s *SQLStore) QueryAll(ctx context.Context, q Query) (Cursor, error) {
	table := q.Partition
	if table == "" {
		table = s.Config.Table
	}
	fields := q.Fields
	if len(fields) == 0 {
		fields = s.Config.QueryFields
	}

	cols := "*"
	if len(fields) > 0 {
		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = s.dialect.quote(f)
		}
		cols = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", cols, s.dialect.quote(table))
	var args []interface{}
	if q.After != nil {
		field := s.dialect.quote(q.After.Field)
		query += fmt.Sprintf(" WHERE %s > %s ORDER BY %s", field, s.dialect.placeholder(1), field)
		args = append(args, q.After.Value)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrStoreUnavailable, table, err)
	}

	names, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: columns of %s: %w", ErrStoreUnavailable, table, err)
	}
	decimals := make(map[int]bool)
	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			switch strings.ToUpper(t.DatabaseTypeName()) {
			case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
				decimals[i] = true
			}
		}
	}
	return &sqlCursor{rows: rows, names: names, decimals: decimals, table: table}, nil
}

type sqlCursor struct {
	rows     *sql.Rows
	names    []string
	decimals map[int]bool
	table    string
	current  models.Record
	err      error
}

func (c *sqlCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	values := make([]interface{}, len(c.names))
	pointers := make([]interface{}, len(c.names))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := c.rows.Scan(pointers...); err != nil {
		c.err = fmt.Errorf("%w: scan %s: %w", ErrStoreUnavailable, c.table, err)
		return false
	}

	rec := make(models.Record, len(c.names))
	for i, name := range c.names {
		val := utils.NormalizeValue(values[i])
		if str, ok := val.(string); ok && c.decimals[i] {
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				val = f
			}
		}
		rec[name] = val
	}
	c.current = rec
	return true
}

func (c *sqlCursor) Record() models.Record { return c.current }

func (c *sqlCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, c.table, err)
	}
	return nil
}

func (c *sqlCursor) Close(context.Context) error { return c.rows.Close() }

func (s *SQLStore) Insert(ctx context.Context, partition string, rec models.Record) error {
	if partition == "" {
		partition = s.Config.Table
	}
	return s.batch.Add(ctx, partition, rec)
}

func (s *SQLStore) CommitAll(ctx context.Context) error {
	return s.batch.CommitAll(ctx)
}

func (s *SQLStore) Close(context.Context) error { return s.DB.Close() }

// flush writes rows with multi-row INSERT statements inside one transaction,
// splitting statements to respect the dialect's parameter limit.
func (s *SQLStore) flush(ctx context.Context, table string, rows []models.Record) error {
	columns := unionColumns(rows)
	if len(columns) == 0 {
		return nil
	}
	perStatement := s.dialect.rowsPerStatement(len(columns))

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err)
	}
	for start := 0; start < len(rows); start += perStatement {
		end := min(start+perStatement, len(rows))
		query, args := s.insertStatement(table, columns, rows[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert into %s: %w", ErrStoreUnavailable, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrStoreUnavailable, table, err)
	}
	return nil
}

func (s *SQLStore) insertStatement(table string, columns []string, rows []models.Record) (string, []interface{}) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.dialect.quote(c)
	}

	args := make([]interface{}, 0, len(rows)*len(columns))
	tuples := make([]string, 0, len(rows))
	for _, row := range rows {
		placeholders := make([]string, len(columns))
		for i, c := range columns {
			args = append(args, row[c])
			placeholders[i] = s.dialect.placeholder(len(args))
		}
		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.dialect.quote(table), strings.Join(quoted, ", "), strings.Join(tuples, ", "))
	return query, args
}

// unionColumns returns every field used by rows, sorted.
func unionColumns(rows []models.Record) []string {
	seen := make(models.Record)
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	return seen.Fields()
}

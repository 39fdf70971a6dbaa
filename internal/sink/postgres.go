package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/racecard"
)

// PostgresSink appends records to the starters table through bun
type PostgresSink struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPostgresSink wraps a bun handle without touching the server
func NewPostgresSink(db *bun.DB, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{db: db, logger: logger}
}

// OpenPostgres connects to dsn and checks the connection
func OpenPostgres(ctx context.Context, dsn string, debug bool, logger *zap.Logger) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink needs a database URL")
	}

	db := NewBunDB(dsn, debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresSink(db, logger), nil
}

// NewBunDB builds a bun handle for dsn. Nothing is dialled until first use.
func NewBunDB(dsn string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Close closes the database connection
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// Write inserts every record of the batch in one transaction
func (s *PostgresSink) Write(ctx context.Context, b Batch) error {
	columns := b.Schema.Columns()
	kinds := b.Schema.Kinds()

	for _, stmt := range SchemaStatements(columns, kinds) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, r := range b.Records {
			if _, err := s.InsertQuery(tx, b.RunID, columns, r).Exec(ctx); err != nil {
				return fmt.Errorf("insert starter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("postgres written", zap.String("table", TableName), zap.Int("rows", len(b.Records)))
	return nil
}

// InsertQuery builds the insert of one record
func (s *PostgresSink) InsertQuery(idb bun.IDB, runID string, columns []string, r racecard.Record) *bun.InsertQuery {
	row := make(map[string]interface{}, len(columns)+1)
	row["run_id"] = runID
	for i, c := range columns {
		if i < len(r) {
			row[c] = r[i]
		}
	}
	return idb.NewInsert().Model(&row).TableExpr(TableName)
}

// SchemaStatements returns the idempotent DDL for the starters table
func SchemaStatements(columns []string, kinds []racecard.Kind) []string {
	defs := []string{"run_id UUID NOT NULL", "created_at TIMESTAMPTZ NOT NULL DEFAULT now()"}
	for i, c := range columns {
		defs = append(defs, fmt.Sprintf("%q %s", c, postgresType(kinds[i])))
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", TableName, strings.Join(defs, ",\n\t")),
	}
	for i, c := range columns {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %q %s",
			TableName, c, postgresType(kinds[i])))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_run_id_idx ON %s (run_id)", TableName, TableName))
	return stmts
}

func postgresType(k racecard.Kind) string {
	switch k {
	case racecard.KindInt:
		return "INTEGER"
	case racecard.KindReal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

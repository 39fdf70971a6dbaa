package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/a3tai/racecard-reader/internal/racecard"
)

// SQLiteSink appends records to the starters table of a SQLite file.
// Columns missing from an existing table are added on first write.
type SQLiteSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database with WAL mode enabled
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink needs a database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteSink{db: db, logger: logger}, nil
}

// DB exposes the underlying handle
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Write inserts every record of the batch in one transaction
func (s *SQLiteSink) Write(ctx context.Context, b Batch) error {
	columns := b.Schema.Columns()
	if err := s.ensureSchema(ctx, columns, b.Schema.Kinds()); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertStatement(columns))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range b.Records {
		args := make([]any, 0, len(r)+1)
		args = append(args, b.RunID)
		args = append(args, r...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert starter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("sqlite written", zap.String("table", TableName), zap.Int("rows", len(b.Records)))
	return nil
}

// ensureSchema creates the table and adds any columns it lacks, such as
// the statistics columns of newly tracked years
func (s *SQLiteSink) ensureSchema(ctx context.Context, columns []string, kinds []racecard.Kind) error {
	defs := []string{"run_id TEXT NOT NULL"}
	for i, c := range columns {
		defs = append(defs, fmt.Sprintf("%q %s", c, sqliteType(kinds[i])))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", TableName, strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}
	for i, c := range columns {
		if existing[c] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %q %s", TableName, c, sqliteType(kinds[i]))
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %s: %w", c, err)
		}
	}
	return nil
}

func (s *SQLiteSink) tableColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", TableName)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func insertStatement(columns []string) string {
	quoted := make([]string, 0, len(columns)+1)
	quoted = append(quoted, "run_id")
	for _, c := range columns {
		quoted = append(quoted, fmt.Sprintf("%q", c))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(quoted)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", TableName, strings.Join(quoted, ", "), placeholders)
}

func sqliteType(k racecard.Kind) string {
	switch k {
	case racecard.KindInt:
		return "INTEGER"
	case racecard.KindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Package sink writes flattened starter records to files or databases.
// Every sink receives the same ordered records and the schema they follow.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/racecard"
)

// Kinds of sink
const (
	KindCSV      = "csv"
	KindJSONL    = "jsonl"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// TableName is the database table starters are written to
const TableName = "starters"

// Batch is the output of one run
type Batch struct {
	RunID   string
	Date    string // meeting date, used in file names
	Schema  racecard.Schema
	Records []racecard.Record
}

// Sink persists a batch of records
type Sink interface {
	Write(ctx context.Context, b Batch) error
	Close() error
}

// Options selects and configures a sink
type Options struct {
	Kind        string
	Dir         string // output directory for file sinks
	DatabaseURL string
	Debug       bool
}

// New opens the sink named by opts.Kind
func New(ctx context.Context, opts Options, logger *zap.Logger) (Sink, error) {
	switch opts.Kind {
	case KindCSV:
		return NewCSVSink(opts.Dir, logger), nil
	case KindJSONL:
		return NewJSONLSink(opts.Dir, logger), nil
	case KindSQLite:
		return OpenSQLite(ctx, opts.DatabaseURL, logger)
	case KindPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL, opts.Debug, logger)
	default:
		return nil, fmt.Errorf("unknown sink: %s", opts.Kind)
	}
}

// fileName builds horse_starters_<date>.<ext> inside dir
func fileName(dir, date, ext string) string {
	if date == "" {
		date = "undated"
	}
	date = strings.NewReplacer("/", "-", string(filepath.Separator), "-").Replace(date)
	return filepath.Join(dir, fmt.Sprintf("horse_starters_%s.%s", date, ext))
}

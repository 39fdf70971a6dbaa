package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// CSVSink writes one CSV file per batch, header row first. Absent values
// are empty fields.
type CSVSink struct {
	dir    string
	logger *zap.Logger
}

// NewCSVSink creates a sink writing into dir
func NewCSVSink(dir string, logger *zap.Logger) *CSVSink {
	return &CSVSink{dir: dir, logger: logger}
}

// Path returns the file the batch would be written to
func (s *CSVSink) Path(b Batch) string {
	return fileName(s.dir, b.Date, "csv")
}

// Write replaces the batch file with the current records
func (s *CSVSink) Write(_ context.Context, b Batch) error {
	path := s.Path(b)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(b.Schema.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range b.Records {
		if err := w.Write(r.Strings()); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	s.logger.Info("csv written", zap.String("path", path), zap.Int("rows", len(b.Records)))
	return nil
}

// Close is a no-op; every Write closes its file.
func (s *CSVSink) Close() error {
	return nil
}

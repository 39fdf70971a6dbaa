package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/racecard"
)

// JSONLSink writes one JSON object per record, keys in column order.
// Absent values are null.
type JSONLSink struct {
	dir    string
	logger *zap.Logger
}

// NewJSONLSink creates a sink writing into dir
func NewJSONLSink(dir string, logger *zap.Logger) *JSONLSink {
	return &JSONLSink{dir: dir, logger: logger}
}

// Path returns the file the batch would be written to
func (s *JSONLSink) Path(b Batch) string {
	return fileName(s.dir, b.Date, "jsonl")
}

// Write replaces the batch file with the current records
func (s *JSONLSink) Write(_ context.Context, b Batch) error {
	path := s.Path(b)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	columns := b.Schema.Columns()
	for _, r := range b.Records {
		line, err := MarshalRecord(columns, r)
		if err != nil {
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	s.logger.Info("jsonl written", zap.String("path", path), zap.Int("rows", len(b.Records)))
	return nil
}

// Close is a no-op; every Write closes its file.
func (s *JSONLSink) Close() error {
	return nil
}

// MarshalRecord encodes a record as a JSON object whose keys follow the
// column order
func MarshalRecord(columns []string, r racecard.Record) ([]byte, error) {
	buf := []byte{'{'}
	for i, c := range columns {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, _ := json.Marshal(c)
		buf = append(buf, key...)
		buf = append(buf, ':')

		var v any
		if i < len(r) {
			v = r[i]
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c, err)
		}
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

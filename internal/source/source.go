// Package source yields race-card documents as text. A source lists the
// documents of a run first and reads each one on demand, so a document that
// cannot be read fails on its own.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/racecard-reader/internal/pdf"
)

// Source lists and reads race-card documents
type Source interface {
	// List returns document identifiers in processing order.
	List(ctx context.Context) ([]string, error)
	// Read returns the raw text of one document.
	Read(ctx context.Context, id string) (string, error)
}

// TextReader extracts text from a PDF file on disk
type TextReader interface {
	ReadText(path string) (string, error)
}

// FileSource reads .pdf and .txt race cards from the local filesystem
type FileSource struct {
	reader TextReader
	dir    string
	files  []string
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source over an explicit file list, or over every
// supported file in dir when files is empty.
func NewFileSource(reader TextReader, dir string, files []string) *FileSource {
	return &FileSource{reader: reader, dir: dir, files: files}
}

// List returns the configured files, or the supported files of the
// directory in name order
func (s *FileSource) List(_ context.Context) ([]string, error) {
	if len(s.files) > 0 {
		return append([]string(nil), s.files...), nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", s.dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Read returns the text of one file
func (s *FileSource) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return readFile(s.reader, path)
}

// Supported reports whether a file name has an extension the sources can read
func Supported(name string) bool {
	return pdf.IsPDFPath(name) || strings.EqualFold(filepath.Ext(name), ".txt")
}

func readFile(reader TextReader, path string) (string, error) {
	switch {
	case pdf.IsPDFPath(path):
		return reader.ReadText(path)
	case strings.EqualFold(filepath.Ext(path), ".txt"):
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cannot read %s: %w", path, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}

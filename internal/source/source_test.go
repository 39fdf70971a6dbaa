package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader returns canned text per PDF path
type fakeReader struct {
	texts map[string]string
	calls []string
}

func (f *fakeReader) ReadText(path string) (string, error) {
	f.calls = append(f.calls, path)
	text, ok := f.texts[filepath.Base(path)]
	if !ok {
		return "", errors.New("invalid PDF file")
	}
	return text, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("text of "+n), 0o644))
	}
}

func TestFileSource_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b_neuss.pdf", "a_dortmund.PDF", "notes.md", "c_koeln.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pdfs"), 0o755))

	ids, err := NewFileSource(&fakeReader{}, dir, nil).List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a_dortmund.PDF"),
		filepath.Join(dir, "b_neuss.pdf"),
		filepath.Join(dir, "c_koeln.txt"),
	}, ids)
}

func TestFileSource_ListExplicitFiles(t *testing.T) {
	files := []string{"/cards/z.pdf", "/cards/a.pdf"}

	ids, err := NewFileSource(&fakeReader{}, "/ignored", files).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, files, ids)
}

func TestFileSource_ListMissingDirectory(t *testing.T) {
	_, err := NewFileSource(&fakeReader{}, filepath.Join(t.TempDir(), "missing"), nil).List(context.Background())
	assert.Error(t, err)
}

func TestFileSource_Read(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "dortmund.pdf", "koeln.txt", "neuss.doc")
	reader := &fakeReader{texts: map[string]string{"dortmund.pdf": "20.02.2026 - Dortmund"}}
	src := NewFileSource(reader, dir, nil)
	ctx := context.Background()

	text, err := src.Read(ctx, filepath.Join(dir, "dortmund.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "20.02.2026 - Dortmund", text)

	text, err = src.Read(ctx, filepath.Join(dir, "koeln.txt"))
	require.NoError(t, err)
	assert.Equal(t, "text of koeln.txt", text)

	_, err = src.Read(ctx, filepath.Join(dir, "neuss.doc"))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = src.Read(ctx, filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	assert.Len(t, reader.calls, 1)
}

func TestFileSource_ReadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource(&fakeReader{}, "", nil).Read(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("card.pdf"))
	assert.True(t, Supported("card.TXT"))
	assert.False(t, Supported("card.csv"))
	assert.False(t, Supported("pdf"))
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/config"
	"github.com/a3tai/racecard-reader/internal/racecard"
)

const card = `20.02.2026 - Dortmund
1
14:05
2200 m
5.100,00 €
Flach
Preis der Stadt Dortmund
Rennpreis: 5.100 €
1
Box: 4
ML: 4,5
Sunny Boy
4j. br. W (Sea The Stars - Sunny Girl)
Trainer: P. Schiergen
58.5 Besitzer: Stall Ullmann
Züchter: Gestüt Ebbesloh
A. Helfenbein
2025: 7 Starts - 2 Siege - 3 Plätze 12.400 €
28.12 Dortmund 3 57.5 1900 1.200 6,4 A. Helfenbein
2
Box: 1
Lucky Star
3j. F S (Adlerflug - Lucky Lady)
Trainer: M. Weiss
56.0 Besitzer: Gestüt Röttgen
Züchter: Gestüt Röttgen
B. Murzabayev
`

// fakeReader serves the card for dortmund.pdf and fails for any other PDF
type fakeReader struct{}

func (fakeReader) ReadText(path string) (string, error) {
	if filepath.Base(path) == "dortmund.pdf" {
		return card, nil
	}
	return "", errors.New("invalid PDF file")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.InputDirectory = t.TempDir()
	cfg.ServerName = "test-server"
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(testConfig(t), fakeReader{}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func callTool(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

type decoded struct {
	RunID     string           `json:"run_id"`
	Documents int              `json:"documents"`
	Failed    int              `json:"failed"`
	Starters  int              `json:"starters"`
	Races     int              `json:"races"`
	Columns   []string         `json:"columns"`
	Records   []map[string]any `json:"records"`
}

func decode(t *testing.T, result *mcp.CallToolResult) decoded {
	t.Helper()
	require.NotNil(t, result)
	require.False(t, result.IsError, extractTextFromResult(result))
	var d decoded
	require.NoError(t, json.Unmarshal([]byte(extractTextFromResult(result)), &d))
	return d
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewServer(cfg, fakeReader{}, nil)
	require.NoError(t, err)
	assert.Same(t, cfg, s.config)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)

	_, err = NewServer(nil, fakeReader{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewServer(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestServer_HandleExtractFile(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleExtractFile(context.Background(), callTool(map[string]any{"path": "dortmund.pdf"}))
	require.NoError(t, err)

	d := decode(t, result)
	assert.NotEmpty(t, d.RunID)
	assert.Equal(t, 1, d.Documents)
	assert.Equal(t, 2, d.Starters)
	assert.Equal(t, 1, d.Races)
	assert.Equal(t, racecard.NewSchema(racecard.DefaultYears).Columns(), d.Columns)
	require.Len(t, d.Records, 2)
	assert.Equal(t, "Sunny Boy", d.Records[0]["horse_name"])
	assert.Equal(t, 2.0, d.Records[0]["field_size"])
	assert.Nil(t, d.Records[1]["ml_odds"])
}

func TestServer_HandleExtractFile_TextFile(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(s.config.InputDirectory, "dortmund.txt")
	require.NoError(t, os.WriteFile(path, []byte(card), 0o644))

	result, err := s.handleExtractFile(context.Background(), callTool(map[string]any{"path": path}))
	require.NoError(t, err)

	d := decode(t, result)
	assert.Equal(t, 2, d.Starters)
}

func TestServer_HandleExtractFile_Errors(t *testing.T) {
	s := newTestServer(t)
	noRaces := filepath.Join(s.config.InputDirectory, "empty.txt")
	require.NoError(t, os.WriteFile(noRaces, []byte("20.02.2026 - Dortmund\n"), 0o644))

	tests := []struct {
		name    string
		args    map[string]any
		wantMsg string
	}{
		{"missing path", map[string]any{}, "path"},
		{"unreadable pdf", map[string]any{"path": "neuss.pdf"}, "Unreadable"},
		{"no races", map[string]any{"path": noRaces}, "NoRaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleExtractFile(context.Background(), callTool(tt.args))
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantMsg)
		})
	}
}

func TestServer_HandleExtractText(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleExtractText(context.Background(), callTool(map[string]any{"text": card}))
	require.NoError(t, err)

	d := decode(t, result)
	assert.Empty(t, d.RunID)
	assert.Equal(t, 2, d.Starters)
	assert.Equal(t, "20.02.2026", d.Records[0]["meeting_date"])
	assert.Equal(t, 54.0, d.Records[0]["days_since_last_run"])
}

func TestServer_HandleExtractText_FallbackDate(t *testing.T) {
	s := newTestServer(t)
	body := card[len("20.02.2026 - Dortmund\n"):]

	result, err := s.handleExtractText(context.Background(),
		callTool(map[string]any{"text": body, "date": "2026-02-20"}))
	require.NoError(t, err)

	d := decode(t, result)
	assert.Equal(t, "2026-02-20", d.Records[0]["meeting_date"])
	assert.Equal(t, 54.0, d.Records[0]["days_since_last_run"])
}

func TestServer_HandleExtractText_Errors(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleExtractText(context.Background(), callTool(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleExtractText(context.Background(), callTool(map[string]any{"text": "Rennen abgesagt"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "no race header")
}

func TestServer_HandleColumns(t *testing.T) {
	s := newTestServer(t)
	s.config.Years = [2]int{2026, 2025}

	result, err := s.handleColumns(context.Background(), callTool(nil))
	require.NoError(t, err)

	var cols []string
	require.NoError(t, json.Unmarshal([]byte(extractTextFromResult(result)), &cols))
	assert.Contains(t, cols, "starts_2026")
	assert.NotContains(t, cols, "starts_2024")
}

func TestServer_Run_ServerModeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeServer
	cfg.Port = 0
	s, err := NewServer(cfg, fakeReader{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

// Package mcp exposes race-card extraction as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/batch"
	"github.com/a3tai/racecard-reader/internal/config"
	"github.com/a3tai/racecard-reader/internal/racecard"
	"github.com/a3tai/racecard-reader/internal/sink"
	"github.com/a3tai/racecard-reader/internal/source"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	reader    source.TextReader
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, reader source.TextReader, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		reader:    reader,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractFileTool := mcp.NewTool(
		"racecard_extract_file",
		mcp.WithDescription("Extract per-starter records from a race-card PDF or text file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the race-card file; relative paths resolve against the input directory"),
		),
		mcp.WithString("date",
			mcp.Description("Meeting date (YYYY-MM-DD) used when the card carries no header date"),
		),
	)
	s.mcpServer.AddTool(extractFileTool, s.handleExtractFile)

	extractTextTool := mcp.NewTool(
		"racecard_extract_text",
		mcp.WithDescription("Extract per-starter records from race-card text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full text of one race card"),
		),
		mcp.WithString("date",
			mcp.Description("Meeting date (YYYY-MM-DD) used when the text carries no header date"),
		),
	)
	s.mcpServer.AddTool(extractTextTool, s.handleExtractText)

	columnsTool := mcp.NewTool(
		"racecard_columns",
		mcp.WithDescription("List the record columns in output order"),
	)
	s.mcpServer.AddTool(columnsTool, s.handleColumns)
}

// extractResponse is the JSON body returned by the extract tools
type extractResponse struct {
	RunID     string            `json:"run_id,omitempty"`
	Documents int               `json:"documents"`
	Failed    int               `json:"failed"`
	Starters  int               `json:"starters"`
	Races     int               `json:"races"`
	Failures  []string          `json:"failures,omitempty"`
	Columns   []string          `json:"columns"`
	Records   []json.RawMessage `json:"records"`
}

// Handler functions
func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !filepath.IsAbs(path) && s.config.InputDirectory != "" {
		path = filepath.Join(s.config.InputDirectory, path)
	}
	date := request.GetString("date", s.config.Date)

	extractor := racecard.NewExtractor(s.config.Years, racecard.WithFallbackDate(date))
	runner := batch.NewRunner(extractor, s.logger)
	src := source.NewFileSource(s.reader, "", []string{path})

	res, err := runner.Extract(ctx, src)
	if err != nil && !errors.Is(err, batch.ErrNoRecords) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if errors.Is(err, batch.ErrNoRecords) && len(res.Failures) > 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Extraction failed: %v", res.Failures[0])), nil
	}

	resp := extractResponse{
		RunID:     res.RunID.String(),
		Documents: res.Documents,
		Failed:    res.Failed,
		Starters:  res.Starters,
		Races:     res.Races,
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	return s.recordsResult(resp, runner.Schema(), res.Records)
}

func (s *Server) handleExtractText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date := request.GetString("date", s.config.Date)

	extractor := racecard.NewExtractor(s.config.Years, racecard.WithFallbackDate(date))
	schema := racecard.NewSchema(extractor.Years())
	doc := extractor.ExtractDocument(text)
	if len(doc.Races) == 0 {
		return mcp.NewToolResultError("Extraction failed: no race header found"), nil
	}

	resp := extractResponse{
		Documents: 1,
		Starters:  len(doc.Starters),
		Races:     len(doc.Races),
	}
	return s.recordsResult(resp, schema, schema.Records(doc.Starters))
}

func (s *Server) handleColumns(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(racecard.NewSchema(s.config.Years).Columns())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) recordsResult(resp extractResponse, schema racecard.Schema, records []racecard.Record) (*mcp.CallToolResult, error) {
	resp.Columns = schema.Columns()
	resp.Records = make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		obj, err := sink.MarshalRecord(resp.Columns, r)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		resp.Records = append(resp.Records, obj)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// Run starts the MCP server based on the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode",
		zap.String("input_dir", s.config.InputDirectory))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx ends
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	s.logger.Info("MCP server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := sse.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/racecard-reader/internal/batch"
	"github.com/a3tai/racecard-reader/internal/config"
	"github.com/a3tai/racecard-reader/internal/logging"
	"github.com/a3tai/racecard-reader/internal/mcp"
	"github.com/a3tai/racecard-reader/internal/pdf"
	"github.com/a3tai/racecard-reader/internal/racecard"
	"github.com/a3tai/racecard-reader/internal/sink"
	"github.com/a3tai/racecard-reader/internal/source"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// downloadDir is where fetched race cards are kept, below the output directory
const downloadDir = "pdfs"

// newSource picks the document source: the web when a URL is configured,
// otherwise the input directory or the explicit file list
func newSource(cfg *config.Config, reader source.TextReader, logger *zap.Logger) source.Source {
	if cfg.URL != "" {
		return source.NewHTTPSource(reader, cfg.URL, cfg.Date,
			filepath.Join(cfg.OutputDirectory, downloadDir), logger,
			source.WithRPS(cfg.RPS),
			source.WithUserAgent(cfg.ServerName+"/"+cfg.Version),
		)
	}
	return source.NewFileSource(reader, cfg.InputDirectory, cfg.Files)
}

// runBatch extracts every configured document and writes the records once
func runBatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reader := pdf.NewReader(cfg.MaxFileSize)
	src := newSource(cfg, reader, logger)

	snk, err := sink.New(ctx, sink.Options{
		Kind:        cfg.Sink,
		Dir:         cfg.OutputDirectory,
		DatabaseURL: cfg.DatabaseURL,
		Debug:       cfg.IsDebug(),
	}, logger)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if cerr := snk.Close(); cerr != nil {
			logger.Warn("closing sink", zap.Error(cerr))
		}
	}()

	extractor := racecard.NewExtractor(cfg.Years, racecard.WithFallbackDate(cfg.Date))
	runner := batch.NewRunner(extractor, logger)

	res, err := runner.Run(ctx, src, snk, cfg.Date)
	if err != nil {
		return err
	}
	logger.Info("batch finished",
		zap.Stringer("run_id", res.RunID),
		zap.Int("documents", res.Documents),
		zap.Int("failed", res.Failed),
		zap.Int("records", len(res.Records)),
	)
	return nil
}

// runServer serves the MCP tools until ctx is canceled or the transport ends
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	server, err := mcp.NewServer(cfg, pdf.NewReader(cfg.MaxFileSize), logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	if cfg.IsServerMode() {
		logger.Info("server stopped")
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.IsBatchMode() {
		return runBatch(ctx, cfg, logger)
	}
	return runServer(ctx, cfg, logger)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting", zap.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Racecard Reader\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/racecard-reader/internal/racecard"
)

const (
	// Mode constants
	ModeBatch  = "batch"
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Sink constants
	SinkCSV      = "csv"
	SinkJSONL    = "jsonl"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultRPS         = 1.0

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the race-card reader
type Config struct {
	// Run mode
	Mode string // "batch", "stdio" or "server"
	Host string
	Port int

	// Inputs
	InputDirectory string
	Files          []string
	Date           string // meeting date, also selects the day page for URL
	URL            string
	RPS            float64

	// Outputs
	OutputDirectory string
	Sink            string
	DatabaseURL     string

	// Extraction
	Years [2]int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeBatch,
		Host:            DefaultHost,
		Port:            DefaultPort,
		InputDirectory:  currentDir,
		OutputDirectory: currentDir,
		RPS:             DefaultRPS,
		Sink:            SinkCSV,
		Years:           racecard.DefaultYears,
		Version:         "1.0.0",
		ServerName:      "racecard-reader",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// A .env file in the working directory is loaded first; real environment
// variables win over it, and flags win over both.
func LoadFromFlags() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := populateConfigFromViper(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	for _, p := range []*string{&cfg.InputDirectory, &cfg.OutputDirectory} {
		if *p == "" {
			continue
		}
		if expanded, err := filepath.Abs(*p); err == nil {
			*p = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("RACECARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.InputDirectory)
	viper.SetDefault("files", "")
	viper.SetDefault("date", "")
	viper.SetDefault("url", "")
	viper.SetDefault("rps", cfg.RPS)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("sink", cfg.Sink)
	viper.SetDefault("database-url", "")
	viper.SetDefault("years", "")
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' to extract and write records, 'stdio' or 'server' for MCP")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.InputDirectory, "Directory containing race-card PDF or text files")
	pflag.String("files", "", "Comma separated race-card files (overrides --dir)")
	pflag.String("date", "", "Meeting date (YYYY-MM-DD); selects the day page when --url is set")
	pflag.String("url", "", "Base URL of the race-day site; PDFs are discovered at <url>/races/<date>")
	pflag.Float64("rps", cfg.RPS, "Maximum download requests per second")
	pflag.String("output", cfg.OutputDirectory, "Output directory for records and downloaded PDFs")
	pflag.String("sink", cfg.Sink, "Record sink: csv, jsonl, sqlite or postgres")
	pflag.String("database-url", "", "Database DSN for the sqlite or postgres sink")
	pflag.String("years", "", "Two tracked statistics years, e.g. 2025,2024 (default: the two years before --date)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "files", "date", "url", "rps",
		"output", "sink", "database-url", "years", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRacecard Reader - turns race-card PDFs into per-starter records\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=./cards --date=2026-02-20              "+
			"# CSV from local PDFs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --url=https://example.org --date=2026-02-20 "+
			"# download the day's PDFs first\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --sink=sqlite --database-url=races.db        "+
			"# write into SQLite\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                                 # MCP over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_MODE          Run mode\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_DIR           Input directory\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_DATE          Meeting date\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_URL           Race-day site URL\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_OUTPUT        Output directory\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_SINK          Record sink\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_DATABASE_URL  Database DSN\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_YEARS         Tracked years\n")
		fmt.Fprintf(os.Stderr, "  RACECARD_LOGLEVEL      Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) error {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.InputDirectory = viper.GetString("dir")
	cfg.Files = splitList(viper.GetString("files"))
	cfg.Date = viper.GetString("date")
	cfg.URL = strings.TrimRight(viper.GetString("url"), "/")
	cfg.RPS = viper.GetFloat64("rps")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.Sink = viper.GetString("sink")
	cfg.DatabaseURL = viper.GetString("database-url")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	years, err := ResolveYears(viper.GetString("years"), cfg.Date)
	if err != nil {
		return err
	}
	cfg.Years = years
	return nil
}

// ResolveYears picks the two tracked statistics years. An explicit list wins;
// otherwise the two years before the meeting date are used, and without a
// date the built-in defaults apply.
func ResolveYears(list, date string) ([2]int, error) {
	if parts := splitList(list); len(parts) > 0 {
		if len(parts) != 2 {
			return [2]int{}, fmt.Errorf("years must name exactly two years, got %d", len(parts))
		}
		var years [2]int
		for i, p := range parts {
			y, err := strconv.Atoi(p)
			if err != nil {
				return [2]int{}, fmt.Errorf("invalid year %q: %w", p, err)
			}
			years[i] = y
		}
		return years, nil
	}

	if date != "" {
		t, err := racecard.ParseMeetingDate(date)
		if err != nil {
			return [2]int{}, err
		}
		return [2]int{t.Year() - 1, t.Year() - 2}, nil
	}

	return racecard.DefaultYears, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeBatch && c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be one of 'batch', 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	switch c.Sink {
	case SinkCSV, SinkJSONL:
	case SinkSQLite, SinkPostgres:
		if c.Mode == ModeBatch && c.DatabaseURL == "" {
			return fmt.Errorf("sink %s requires a database URL", c.Sink)
		}
	default:
		return fmt.Errorf("invalid sink: %s (must be one of: csv, jsonl, sqlite, postgres)", c.Sink)
	}

	if c.Years[0] == c.Years[1] {
		return fmt.Errorf("tracked years must be distinct, got %d twice", c.Years[0])
	}
	for _, y := range c.Years {
		if y < 1900 || y > 2999 {
			return fmt.Errorf("tracked year out of range: %d", y)
		}
	}

	if c.Date != "" {
		if _, err := racecard.ParseMeetingDate(c.Date); err != nil {
			return err
		}
	}

	if c.URL != "" && c.Date == "" {
		return errors.New("a date is required to discover PDFs from a URL")
	}

	if c.RPS <= 0 {
		return errors.New("requests per second must be positive")
	}

	if c.Mode == ModeBatch && c.URL == "" && len(c.Files) == 0 && c.InputDirectory == "" {
		return errors.New("batch mode needs an input directory, files or a URL")
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.Mode == ModeBatch {
		if _, err := os.Stat(c.OutputDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access output directory %s: %w", c.OutputDirectory, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. The database
// URL is left out since it may carry credentials.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, InputDirectory: %s, Files: %d, Date: %s, URL: %s, "+
		"OutputDirectory: %s, Sink: %s, Years: %d/%d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.InputDirectory, len(c.Files), c.Date, c.URL,
		c.OutputDirectory, c.Sink, c.Years[0], c.Years[1], c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the MCP server runs over HTTP
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP server runs over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsBatchMode returns true for a one-shot extraction run
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

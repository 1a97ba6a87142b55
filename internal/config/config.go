package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Revenue strategies
	StrategySegment  = "segment"
	StrategyAdjacent = "adjacent"

	// Default values
	DefaultPort            = 8080
	DefaultHost            = "127.0.0.1"
	DefaultLogLevel        = "info"
	DefaultMaxFileSize     = 20 * 1024 * 1024 // 20MB
	DefaultDatabaseFile    = "pgdas.db"
	DefaultRevenueStrategy = StrategySegment
	DefaultRateLimit       = 10.0
	DefaultRateBurst       = 30
	DefaultCacheTTL        = 15 * time.Minute

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix is prepended to every environment variable, e.g. MCP_PGDAS_PORT.
	EnvPrefix = "MCP_PGDAS"
)

// ErrVersionRequested is returned by Load when a version flag is present.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the PGDAS reader
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	PDFDirectory    string
	MaxFileSize     int64 // Maximum PDF file size in bytes
	RevenueStrategy string

	// Storage configuration
	DatabasePath string
	CacheTTL     time.Duration

	// HTTP API limits (server mode only)
	RateLimit float64 // requests per second
	RateBurst int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio, // Default to stdio mode for MCP compatibility
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		MaxFileSize:     DefaultMaxFileSize,
		RevenueStrategy: DefaultRevenueStrategy,
		DatabasePath:    filepath.Join(currentDir, DefaultDatabaseFile),
		CacheTTL:        DefaultCacheTTL,
		RateLimit:       DefaultRateLimit,
		RateBurst:       DefaultRateBurst,
		Version:         "1.0.0",
		ServerName:      "mcp-pgdas-reader",
		LogLevel:        DefaultLogLevel,
	}
}

// LoadFromFlags parses the process arguments and environment into a configuration
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a configuration from defaults, an optional config file,
// MCP_PGDAS_* environment variables and args, in increasing precedence.
func Load(args []string) (*Config, error) {
	if hasVersionFlag(args) {
		return nil, ErrVersionRequested
	}

	cfg := DefaultConfig()
	v := viper.New()
	flags := pflag.NewFlagSet("mcp-pgdas-reader", pflag.ContinueOnError)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(flags, cfg)
	setupUsageMessage(flags, os.Stderr)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	populateConfigFromViper(v, cfg)

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("db", cfg.DatabasePath)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("revenue-strategy", cfg.RevenueStrategy)
	v.SetDefault("rate-limit", cfg.RateLimit)
	v.SetDefault("rate-burst", cfg.RateBurst)
	v.SetDefault("cache-ttl", cfg.CacheTTL)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.String("config", "", "Optional configuration file (yaml, toml or json)")
	flags.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for the HTTP API")
	flags.String("host", cfg.Host, "Server host address (server mode only)")
	flags.Int("port", cfg.Port, "Server port (server mode only)")
	flags.String("dir", cfg.PDFDirectory, "Directory holding PGDAS PDF files and staged uploads")
	flags.String("db", cfg.DatabasePath, "SQLite database file")
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	flags.String("revenue-strategy", cfg.RevenueStrategy,
		"Monthly revenue pairing: 'segment' (first amount after each period) or 'adjacent'")
	flags.Float64("rate-limit", cfg.RateLimit, "HTTP requests per second (server mode only)")
	flags.Int("rate-burst", cfg.RateBurst, "HTTP request burst size (server mode only)")
	flags.Duration("cache-ttl", cfg.CacheTTL, "How long stored reports stay cached")
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(flags *pflag.FlagSet, w io.Writer) {
	flags.Usage = func() {
		fmt.Fprintf(w, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(w, "\nMCP PGDAS Reader - extracts and stores Simples Nacional PGDAS-D declarations\n\n")
		fmt.Fprintf(w, "Options:\n")
		flags.SetOutput(w)
		flags.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  %s                                   # MCP over stdio, current directory\n", os.Args[0])
		fmt.Fprintf(w, "  %s --dir=/path/to/pdfs               # MCP over stdio, custom directory\n", os.Args[0])
		fmt.Fprintf(w, "  %s --mode=server --port=3001         # HTTP API\n", os.Args[0])
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fmt.Fprintf(w, "  %s_MODE, %s_HOST, %s_PORT, %s_DIR, %s_DB,\n",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(w, "  %s_LOG_LEVEL, %s_MAX_FILE_SIZE, %s_REVENUE_STRATEGY,\n", EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(w, "  %s_RATE_LIMIT, %s_RATE_BURST, %s_CACHE_TTL\n", EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// hasVersionFlag checks if version flag was requested
func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.DatabasePath = v.GetString("db")
	cfg.LogLevel = v.GetString("log-level")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.RevenueStrategy = v.GetString("revenue-strategy")
	cfg.RateLimit = v.GetFloat64("rate-limit")
	cfg.RateBurst = v.GetInt("rate-burst")
	cfg.CacheTTL = v.GetDuration("cache-ttl")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	if c.DatabasePath == "" {
		return errors.New("database path cannot be empty")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.RevenueStrategy != StrategySegment && c.RevenueStrategy != StrategyAdjacent {
		return fmt.Errorf("invalid revenue strategy: %s (must be one of: segment, adjacent)", c.RevenueStrategy)
	}

	if c.Mode == ModeServer && (c.RateLimit <= 0 || c.RateBurst <= 0) {
		return errors.New("rate limit and burst must be positive")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	// Validate log level
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

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, DatabasePath: %s, "+
		"LogLevel: %s, MaxFileSize: %d, RevenueStrategy: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.DatabasePath, c.LogLevel, c.MaxFileSize, c.RevenueStrategy)
}

// IsServerMode returns true if the HTTP API should be served
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP server runs over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

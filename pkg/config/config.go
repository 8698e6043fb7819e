package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"bulk/pkg/pipeline"
)

const (
	envConfig      = "BULK_CONFIG"
	envSize        = "BULK_SIZE"
	envOutputDir   = "BULK_OUTPUT_DIR"
	envGranularity = "BULK_GRANULARITY"

	DefaultGranularity = "s"
	DefaultLogLevel    = "warn"
)

// ErrInvalidBatchSize is returned for a missing, non-numeric, or non-positive batch size.
var ErrInvalidBatchSize = pipeline.ErrInvalidBatchSize

// Config is the root runtime configuration.
type Config struct {
	Bulk    BulkConfig    `json:"bulk" toml:"bulk"`
	Logging LoggingConfig `json:"logging,omitempty" toml:"logging"`

	// sizeErr holds a rejected BULK_SIZE until Validate, so a size given on
	// the command line can still replace it.
	sizeErr error
}

// BulkConfig controls batching and log file output.
type BulkConfig struct {
	Size        int    `json:"size,omitempty" toml:"size"`
	OutputDir   string `json:"output_dir,omitempty" toml:"output_dir"`
	Granularity string `json:"granularity,omitempty" toml:"granularity"`
	OpenToken   string `json:"open_token,omitempty" toml:"open_token"`
	CloseToken  string `json:"close_token,omitempty" toml:"close_token"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" toml:"format"`
	Level     string `json:"level,omitempty" toml:"level"`
	AddSource bool   `json:"add_source,omitempty" toml:"add_source"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Bulk: BulkConfig{
			OutputDir:   ".",
			Granularity: DefaultGranularity,
			OpenToken:   pipeline.DefaultOpenToken,
			CloseToken:  pipeline.DefaultCloseToken,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads the config file at path, or the one found via BULK_CONFIG and
// the working directory, and applies environment overrides.
//
// A missing file is only an error when it was named explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	configPath, err := findConfigPath(path)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := decodeFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	fillDefaults(cfg)

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if raw := strings.TrimSpace(os.Getenv(envSize)); raw != "" {
		size, err := ParseBatchSize(raw)
		if err != nil {
			cfg.sizeErr = fmt.Errorf("%s: %w", envSize, err)
		} else {
			cfg.SetSize(size)
		}
	}

	if dir := strings.TrimSpace(os.Getenv(envOutputDir)); dir != "" {
		cfg.Bulk.OutputDir = dir
	}

	if g := strings.TrimSpace(os.Getenv(envGranularity)); g != "" {
		cfg.Bulk.Granularity = g
	}
}

// SetSize overrides the batch size, replacing any size read earlier.
func (c *Config) SetSize(size int) {
	c.Bulk.Size = size
	c.sizeErr = nil
}

func fillDefaults(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.Bulk.OutputDir) == "" {
		cfg.Bulk.OutputDir = def.Bulk.OutputDir
	}
	if cfg.Bulk.Granularity == "" {
		cfg.Bulk.Granularity = def.Bulk.Granularity
	}
	if cfg.Bulk.OpenToken == "" {
		cfg.Bulk.OpenToken = def.Bulk.OpenToken
	}
	if cfg.Bulk.CloseToken == "" {
		cfg.Bulk.CloseToken = def.Bulk.CloseToken
	}
}

// Validate checks the settings needed to build a pipeline.
func (c *Config) Validate() error {
	if c.sizeErr != nil {
		return c.sizeErr
	}
	if c.Bulk.Size == 0 {
		return fmt.Errorf("bulk size is not specified: %w", ErrInvalidBatchSize)
	}
	if c.Bulk.Size < 0 {
		return fmt.Errorf("bulk size %d: %w", c.Bulk.Size, ErrInvalidBatchSize)
	}

	if _, err := pipeline.ParseGranularity(c.Bulk.Granularity); err != nil {
		return err
	}

	if c.Bulk.OpenToken == "" || c.Bulk.CloseToken == "" {
		return errors.New("block tokens must not be empty")
	}
	if c.Bulk.OpenToken == c.Bulk.CloseToken {
		return fmt.Errorf("open and close tokens must differ (both %q)", c.Bulk.OpenToken)
	}

	return nil
}

// ParseBatchSize parses the positional bulk size argument.
func ParseBatchSize(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("bulk size is not specified: %w", ErrInvalidBatchSize)
	}

	size, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid bulk size %q: %w", raw, ErrInvalidBatchSize)
	}
	if size <= 0 {
		return 0, fmt.Errorf("invalid bulk size %d: %w", size, ErrInvalidBatchSize)
	}

	return size, nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is the explicit path, then BULK_CONFIG, then cwd-local files.
// It returns "" when nothing is configured and no default file exists.
func findConfigPath(explicit string) (string, error) {
	if value := strings.TrimSpace(explicit); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("config path does not point to a file: %s", value)
	}

	if value := strings.TrimSpace(os.Getenv(envConfig)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfig, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "bulk.json"),
		filepath.Join(cwd, "bulk.toml"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains connection settings for the remote tracking service.
type API struct {
	URL      string `toml:"url"`
	TokenEnv string `toml:"token_env"`
	Version  string `toml:"version"`
}

// Columns maps board column identifiers to the fields the pipeline reads.
type Columns struct {
	Status    string `toml:"status"`
	OpenDate  string `toml:"open_date"`
	CloseDate string `toml:"close_date"`
}

// Board identifies the tracked board and the filtering rules applied to it.
type Board struct {
	ID                  string  `toml:"id"`
	StatusLabelRequired string  `toml:"status_label_required"`
	Columns             Columns `toml:"columns"`
}

// Run contains page sizing, parallelism, and timeout settings.
type Run struct {
	PageSize               int `toml:"page_size"`
	Workers                int `toml:"workers"`
	MaxItems               int `toml:"max_items"` // dry-run cap only; 0 means unlimited
	QueryTimeoutSeconds    int `toml:"query_timeout"`
	DownloadTimeoutSeconds int `toml:"download_timeout"`
	ConvertTimeoutSeconds  int `toml:"convert_timeout"`
}

// Convert contains converter binaries and feature toggles.
type Convert struct {
	SofficeBinary     string `toml:"soffice_binary"`
	HTMLEnabled       bool   `toml:"html_enabled"`
	WkhtmltopdfBinary string `toml:"wkhtmltopdf_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ticketpdf.
type Config struct {
	API     API     `toml:"api"`
	Board   Board   `toml:"board"`
	Run     Run     `toml:"run"`
	Convert Convert `toml:"convert"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ticketpdf/config.toml")
}

// Load parses and validates a configuration file. Missing required fields
// fail here, before any network call is made.
func Load(path string) (*Config, error) {
	cfg := Default()

	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Token resolves the API token from the configured environment variable.
func (c *Config) Token() string {
	return strings.TrimSpace(os.Getenv(c.API.TokenEnv))
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func (c *Config) normalize() {
	c.API.URL = strings.TrimSpace(c.API.URL)
	c.API.TokenEnv = strings.TrimSpace(c.API.TokenEnv)
	c.Board.ID = strings.TrimSpace(c.Board.ID)
	c.Board.StatusLabelRequired = strings.TrimSpace(c.Board.StatusLabelRequired)
	c.Convert.SofficeBinary = strings.TrimSpace(c.Convert.SofficeBinary)
	c.Convert.WkhtmltopdfBinary = strings.TrimSpace(c.Convert.WkhtmltopdfBinary)
	if c.Convert.SofficeBinary == "" {
		c.Convert.SofficeBinary = "soffice"
	}
	if c.Convert.WkhtmltopdfBinary == "" {
		c.Convert.WkhtmltopdfBinary = "wkhtmltopdf"
	}
	if c.Run.PageSize <= 0 {
		c.Run.PageSize = defaultPageSize
	}
	if c.Run.Workers <= 0 {
		c.Run.Workers = defaultWorkers
	}
	if c.Run.QueryTimeoutSeconds <= 0 {
		c.Run.QueryTimeoutSeconds = defaultQueryTimeout
	}
	if c.Run.DownloadTimeoutSeconds <= 0 {
		c.Run.DownloadTimeoutSeconds = defaultDownloadTimeout
	}
	if c.Run.ConvertTimeoutSeconds <= 0 {
		c.Run.ConvertTimeoutSeconds = defaultConvertTimeout
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

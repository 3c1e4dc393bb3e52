package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Every required field is
// checked eagerly so a broken config fails before any remote call.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateBoard(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.URL == "" {
		return errors.New("api.url must be set")
	}
	if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		return fmt.Errorf("api.url must be an http(s) URL, got %q", c.API.URL)
	}
	if c.API.TokenEnv == "" {
		return errors.New("api.token_env must name the environment variable holding the API token")
	}
	return nil
}

func (c *Config) validateBoard() error {
	if c.Board.ID == "" {
		return errors.New("board.id must be set")
	}
	if c.Board.StatusLabelRequired == "" {
		return errors.New("board.status_label_required must be set")
	}
	missing := make([]string, 0, 3)
	if strings.TrimSpace(c.Board.Columns.Status) == "" {
		missing = append(missing, "board.columns.status")
	}
	if strings.TrimSpace(c.Board.Columns.OpenDate) == "" {
		missing = append(missing, "board.columns.open_date")
	}
	if strings.TrimSpace(c.Board.Columns.CloseDate) == "" {
		missing = append(missing, "board.columns.close_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column mapping: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateRun() error {
	if err := ensurePositiveMap(map[string]int{
		"run.page_size":        c.Run.PageSize,
		"run.workers":          c.Run.Workers,
		"run.query_timeout":    c.Run.QueryTimeoutSeconds,
		"run.download_timeout": c.Run.DownloadTimeoutSeconds,
		"run.convert_timeout":  c.Run.ConvertTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Run.MaxItems < 0 {
		return errors.New("run.max_items must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

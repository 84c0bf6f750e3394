package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration for a billcheck run.
type Config struct {
	DSN       string
	ClaimsDir string
	RulesPath string
	LogDir    string
	LogFormat string // "text" or "json"
	Workers   int
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.ClaimsDir == "" {
		return fmt.Errorf("--claims is required")
	}
	info, err := os.Stat(c.ClaimsDir)
	if err != nil {
		return fmt.Errorf("claims dir not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("claims path %s is not a directory", c.ClaimsDir)
	}
	if c.Workers < 1 {
		return fmt.Errorf("--workers must be >= 1")
	}
	return nil
}

// ValidateWithDSN checks both run fields and the DSN.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or BILLREVIEW_DB_URL is required")
	}
	return nil
}

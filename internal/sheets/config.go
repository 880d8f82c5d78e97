// Package sheets exports the ledger, monthly totals and budget progress to Google Sheets.
package sheets

import (
	"fmt"
	"time"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	RefreshToken       string        `mapstructure:"refresh_token"`
	ServiceAccountPath string        `mapstructure:"service_account_path"`
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string        `mapstructure:"spreadsheet_name"`
	TimeZone           string        `mapstructure:"time_zone"`
	CurrencyPattern    string        `mapstructure:"currency_pattern"`
	BatchSize          int           `mapstructure:"batch_size"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	EnableFormatting   bool          `mapstructure:"enable_formatting"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  "Spice Ledger",
		TimeZone:         "Asia/Kolkata",
		CurrencyPattern:  "[$₹]#,##,##0.00",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}

	return nil
}

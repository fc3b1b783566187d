package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lashiva/stockrecon/internal/ledger"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Ledger    ledger.Columns
	Audit     AuditConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port        string
	MaxUploadMB int64
}

// LogConfig selects the logger level and encoder.
type LogConfig struct {
	Level       string
	Development bool
}

// AuditConfig locates the run history file.
type AuditConfig struct {
	HistoryFile string
}

// SheetsConfig contains configuration required to reconcile a Google Sheet
// on a schedule. The integration is off when CredentialsPath is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	LedgerRange     string
	SalesRange      string
	ExchangeRange   string
	HistoryRange    string
}

// Enabled reports whether the sheet sync is configured.
func (s SheetsConfig) Enabled() bool { return s.CredentialsPath != "" }

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Location resolves Timezone.
func (r ReportingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

// MongoDBConfig holds settings for the report archive. Empty URI disables it.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether reports are archived.
func (m MongoDBConfig) Enabled() bool { return m.URI != "" }

// WhatsAppConfig contains credentials for low-stock alerts over the Meta
// WhatsApp Cloud API. Empty AccessToken disables alerts.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// Enabled reports whether alerts are sent.
func (w WhatsAppConfig) Enabled() bool { return w.AccessToken != "" }

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	defaults := ledger.DefaultColumns()

	maxUpload, err := strconv.ParseInt(getenvWithDefault("MAX_UPLOAD_MB", "32"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			MaxUploadMB: maxUpload,
		},
		Log: LogConfig{
			Level:       getenvWithDefault("LOG_LEVEL", "info"),
			Development: os.Getenv("APP_ENV") == "development",
		},
		Ledger: ledger.Columns{
			Name:     getenvWithDefault("LEDGER_COL_NAME", defaults.Name),
			Date:     getenvWithDefault("LEDGER_COL_DATE", defaults.Date),
			SKU:      getenvWithDefault("LEDGER_COL_SKU", defaults.SKU),
			Opening:  getenvWithDefault("LEDGER_COL_OPENING", defaults.Opening),
			Received: getenvWithDefault("LEDGER_COL_RECEIVED", defaults.Received),
			Closing:  getenvWithDefault("LEDGER_COL_CLOSING", defaults.Closing),
			Safety:   getenvWithDefault("LEDGER_COL_SAFETY", defaults.Safety),
			Seed:     getenvWithDefault("LEDGER_COL_SEED", defaults.Seed),
		},
		Audit: AuditConfig{
			HistoryFile: getenvWithDefault("AUDIT_HISTORY_FILE", "upload_history.csv"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			LedgerRange:     getenvWithDefault("SHEETS_LEDGER_RANGE", "Ledger!A:Z"),
			SalesRange:      getenvWithDefault("SHEETS_SALES_RANGE", "Sales!A:Z"),
			ExchangeRange:   os.Getenv("SHEETS_EXCHANGE_RANGE"),
			HistoryRange:    getenvWithDefault("SHEETS_HISTORY_RANGE", "History!A:E"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 23 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Shanghai"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "lashiva"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and that
// optional integrations are either complete or switched off.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}

	for _, label := range c.Ledger.Required() {
		if label == "" {
			return errors.New("ledger column labels must not be empty")
		}
	}

	if c.Audit.HistoryFile == "" {
		return errors.New("AUDIT_HISTORY_FILE must not be empty")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := c.Reporting.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Sheets.Enabled() {
		switch {
		case c.Sheets.SpreadsheetID == "":
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided when sheets sync is enabled")
		case c.Sheets.LedgerRange == "":
			return errors.New("SHEETS_LEDGER_RANGE must be provided when sheets sync is enabled")
		case c.Sheets.SalesRange == "":
			return errors.New("SHEETS_SALES_RANGE must be provided when sheets sync is enabled")
		case c.Reporting.CronSchedule == "":
			return errors.New("REPORT_CRON_SCHEDULE must be provided when sheets sync is enabled")
		}
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.AlertRecipient == "":
			return errors.New("WHATSAPP_ALERT_RECIPIENT must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "MAX_UPLOAD_MB", "LOG_LEVEL", "APP_ENV", "AUDIT_HISTORY_FILE", "LEDGER_COL_SKU",
		"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
		"REPORT_CRON_SCHEDULE", "TIMEZONE", "MONGODB_URI", "MONGODB_DB_NAME",
		"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_ALERT_RECIPIENT",
	} {
		// godotenv never overrides a variable that is set, even to "".
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.EqualValues(t, 32, cfg.Server.MaxUploadMB)
	assert.Equal(t, "SKU", cfg.Ledger.SKU)
	assert.Equal(t, "初期库存（承接）", cfg.Ledger.Opening)
	assert.Equal(t, "upload_history.csv", cfg.Audit.HistoryFile)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.MongoDB.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.Equal(t, "Asia/Shanghai", cfg.Reporting.Timezone)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9090\nLEDGER_COL_SKU=货号\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "货号", cfg.Ledger.SKU)
}

func TestValidateRequiresCompleteIntegrations(t *testing.T) {
	clearEnv(t)

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/secrets/sa.json")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "GOOGLE_SHEET_DATABASE_ID")

	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	_, err = Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "WHATSAPP_ALERT_RECIPIENT")

	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "TIMEZONE")
}

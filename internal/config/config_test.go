package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poliglotbot/internal/shared"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:real-token")
	t.Setenv("WEBAPP_URL", "https://poliglot.example.app")
	for _, k := range []string{
		"ENV", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_WEBHOOK_SECRET", "TELEGRAM_POLL_TIMEOUT", "TELEGRAM_DRY_RUN",
		"HTTP_ADDR", "LOG_CONSOLE_LEVEL", "LOG_FILE_LEVEL", "LOG_FILE", "MESSAGES_FILE", "ALLOWED_USER_IDS",
		"RATE_LIMIT", "WORKERS", "STORAGE_DRIVER", "SQLITE_PATH", "POSTGRES_DSN", "REPORT_SCHEDULE", "REPORT_CHAT_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, "123456:real-token", c.Telegram.Token)
	assert.Equal(t, "https://poliglot.example.app", c.WebApp.URL)
	assert.Equal(t, time.Minute, c.Telegram.PollTimeout)
	assert.False(t, c.Webhook())
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, time.Second, c.RateLimit)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, DriverSQLite, c.Storage.Driver)
	assert.Equal(t, "data/bot.db", c.Storage.SQLitePath)
	assert.Equal(t, "0 0 9 * * *", c.Report.Schedule)
	assert.Empty(t, c.AllowedIDs)
	assert.Zero(t, c.Report.ChatID)
}

func TestLoad_PlaceholderToken(t *testing.T) {
	for _, token := range []string{"", "   ", PlaceholderToken} {
		t.Run("token="+token, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("TELEGRAM_BOT_TOKEN", token)

			_, err := Load()
			require.ErrorIs(t, err, ErrPlaceholderToken)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestLoad_PlaceholderCheckedBeforeOtherSettings(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", PlaceholderToken)
	t.Setenv("WEBAPP_URL", "")
	t.Setenv("WORKERS", "many")

	_, err := Load()
	require.ErrorIs(t, err, ErrPlaceholderToken)
}

func TestLoad_WebAppURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://poliglot.vercel.app", true},
		{"https://poliglot.vercel.app/quiz?lang=tr", true},
		{"", false},
		{"http://poliglot.vercel.app", false},
		{"YOUR_VERCEL_DEPLOYMENT_URL", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("WEBAPP_URL", tt.url)

			c, err := Load()
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.url, c.WebApp.URL)
				return
			}
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENV", "dev")
	t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
	t.Setenv("TELEGRAM_POLL_TIMEOUT", "30s")
	t.Setenv("TELEGRAM_DRY_RUN", "true")
	t.Setenv("ALLOWED_USER_IDS", "1, 2,3\n4")
	t.Setenv("RATE_LIMIT", "0s")
	t.Setenv("WORKERS", "2")
	t.Setenv("STORAGE_DRIVER", "POSTGRES")
	t.Setenv("POSTGRES_DSN", "postgres://bot@localhost/bot")
	t.Setenv("REPORT_CHAT_ID", "-1001234567890")

	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.Webhook())
	assert.True(t, c.Telegram.DryRun)
	assert.Equal(t, 30*time.Second, c.Telegram.PollTimeout)
	assert.Equal(t, []int64{1, 2, 3, 4}, c.AllowedIDs)
	assert.Zero(t, c.RateLimit)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, DriverPostgres, c.Storage.Driver)
	assert.Equal(t, int64(-1001234567890), c.Report.ChatID)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"webhook without secret": {"TELEGRAM_WEBHOOK_URL": "https://bot.example.com/hook"},
		"bad duration":           {"RATE_LIMIT": "soon"},
		"bad workers":            {"WORKERS": "0"},
		"bad ids":                {"ALLOWED_USER_IDS": "1,abc"},
		"bad env":                {"ENV": "staging"},
		"bad driver":             {"STORAGE_DRIVER": "mongo"},
		"postgres without dsn":   {"STORAGE_DRIVER": "postgres"},
		"short poll timeout":     {"TELEGRAM_POLL_TIMEOUT": "10ms"},
		"bad log level":          {"LOG_CONSOLE_LEVEL": "trace"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
}

func TestCheckToken(t *testing.T) {
	assert.ErrorIs(t, CheckToken(""), ErrPlaceholderToken)
	assert.ErrorIs(t, CheckToken(PlaceholderToken), ErrPlaceholderToken)
	assert.NoError(t, CheckToken("42:abc"))
}

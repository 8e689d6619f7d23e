package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"poliglotbot/internal/shared"
)

// PlaceholderToken is the value shipped in .env.example. It is never a real token.
const PlaceholderToken = "YOUR_BOT_TOKEN"

// ErrPlaceholderToken means TELEGRAM_BOT_TOKEN is empty or still the placeholder.
var ErrPlaceholderToken = shared.MarkKind(errors.New("TELEGRAM_BOT_TOKEN is not set: put your bot token from @BotFather into the environment or .env"), shared.KindValidation)

// Storage drivers of the launch journal.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration values.
type Config struct {
	Env      string `validate:"required,oneof=dev prod"`
	Telegram struct {
		Token         string
		WebhookURL    string `validate:"omitempty,url"`
		WebhookSecret string
		PollTimeout   time.Duration `validate:"min=1s"`
		DryRun        bool
	}
	WebApp struct {
		URL string `validate:"required,url,startswith=https://"`
	}
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Messages struct {
		File string
	}
	AllowedIDs []int64
	RateLimit  time.Duration `validate:"min=0s"`
	Workers    int           `validate:"min=1,max=64"`
	Storage    Storage
	Report     struct {
		Schedule string `validate:"required"`
		ChatID   int64
	}
}

// Storage selects the launch journal backend.
type Storage struct {
	Driver      string `validate:"required,oneof=none sqlite postgres"`
	SQLitePath  string `validate:"required_if=Driver sqlite"`
	PostgresDSN string `validate:"required_if=Driver postgres"`
}

// Webhook reports whether updates arrive through a webhook instead of long polling.
func (c Config) Webhook() bool { return c.Telegram.WebhookURL != "" }

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
// The token is checked first so a misconfigured bot fails before anything else happens.
func Load() (Config, error) {
	_ = godotenv.Load()

	if err := CheckToken(os.Getenv("TELEGRAM_BOT_TOKEN")); err != nil {
		return Config{}, err
	}

	var c Config
	var errs []error
	c.Env = getenv("ENV", "prod")
	c.Telegram.Token = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.Telegram.WebhookURL = os.Getenv("TELEGRAM_WEBHOOK_URL")
	c.Telegram.WebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	c.Telegram.PollTimeout = duration("TELEGRAM_POLL_TIMEOUT", time.Minute, &errs)
	c.Telegram.DryRun = boolean("TELEGRAM_DRY_RUN", false, &errs)
	c.WebApp.URL = strings.TrimSpace(os.Getenv("WEBAPP_URL"))
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/bot.log")
	c.Messages.File = os.Getenv("MESSAGES_FILE")
	c.AllowedIDs = ids("ALLOWED_USER_IDS", &errs)
	c.RateLimit = duration("RATE_LIMIT", time.Second, &errs)
	c.Workers = integer("WORKERS", 8, &errs)
	c.Storage.Driver = strings.ToLower(getenv("STORAGE_DRIVER", DriverSQLite))
	c.Storage.SQLitePath = getenv("SQLITE_PATH", "data/bot.db")
	c.Storage.PostgresDSN = os.Getenv("POSTGRES_DSN")
	c.Report.Schedule = getenv("REPORT_SCHEDULE", "0 0 9 * * *")
	if chats := ids("REPORT_CHAT_ID", &errs); len(chats) > 0 {
		c.Report.ChatID = chats[0]
	}

	if len(errs) > 0 {
		return Config{}, shared.MarkKind(errors.Join(errs...), shared.KindValidation)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, shared.MarkKind(err, shared.KindValidation)
	}
	if c.Webhook() && c.Telegram.WebhookSecret == "" {
		return Config{}, shared.MarkKind(errors.New("TELEGRAM_WEBHOOK_SECRET required when TELEGRAM_WEBHOOK_URL is set"), shared.KindValidation)
	}
	return c, nil
}

// CheckToken rejects an empty token and the placeholder.
func CheckToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" || token == PlaceholderToken {
		return ErrPlaceholderToken
	}
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func duration(k string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}

func integer(k string, def int, errs *[]error) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func boolean(k string, def bool, errs *[]error) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return b
}

// ids parses a list of user ids separated by commas, spaces or newlines.
func ids(k string, errs *[]error) []int64 {
	parts := strings.FieldsFunc(os.Getenv(k), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		out = append(out, n)
	}
	return out
}

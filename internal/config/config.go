package config

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string
	AdminID  string

	CryptoPayToken string
	CryptoPayURL   string
	GatewayTimeout time.Duration

	DBDsn     string
	PlansFile string

	DefaultLanguage    string
	SupportedLanguages []string

	MaxPaymentChecks  int
	ReconcileSchedule string
	ReminderSchedule  string

	HealthAddr string
	LogLevel   slog.Level
}

func Load() *Config {
	// .env нужен только для локального запуска, в контейнере переменные уже заданы
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	return &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		AdminID:  os.Getenv("ADMIN_ID"),

		CryptoPayToken: os.Getenv("CRYPTO_PAY_TOKEN"),
		CryptoPayURL:   getEnvOrDefault("CRYPTO_PAY_URL", "https://pay.crypt.bot/api"),
		GatewayTimeout: getDurationOrDefault("GATEWAY_TIMEOUT", 15*time.Second),

		DBDsn:     getEnvOrDefault("DB_DSN", "subscriptions.db"),
		PlansFile: os.Getenv("PLANS_FILE"),

		DefaultLanguage:    getEnvOrDefault("DEFAULT_LANGUAGE", "ru"),
		SupportedLanguages: splitList(getEnvOrDefault("SUPPORTED_LANGUAGES", "ru,en")),

		MaxPaymentChecks:  getIntOrDefault("MAX_PAYMENT_CHECKS", 20),
		ReconcileSchedule: getEnvOrDefault("RECONCILE_SCHEDULE", "@every 1m"),
		ReminderSchedule:  getEnvOrDefault("REMINDER_SCHEDULE", "0 12 * * *"),

		HealthAddr: getEnvOrDefault("HEALTH_ADDR", "0.0.0.0:8080"),
		LogLevel:   parseLevel(os.Getenv("LOG_LEVEL")),
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is not set"))
	}
	if c.CryptoPayToken == "" {
		errs = append(errs, errors.New("CRYPTO_PAY_TOKEN is not set"))
	}
	if len(c.SupportedLanguages) == 0 {
		errs = append(errs, errors.New("SUPPORTED_LANGUAGES is empty"))
	} else if !slices.Contains(c.SupportedLanguages, c.DefaultLanguage) {
		errs = append(errs, errors.New("DEFAULT_LANGUAGE must be one of SUPPORTED_LANGUAGES"))
	}
	if c.AdminID != "" {
		if _, err := strconv.ParseInt(c.AdminID, 10, 64); err != nil {
			errs = append(errs, errors.New("ADMIN_ID must be a numeric telegram id"))
		}
	}
	return errors.Join(errs...)
}

// AdminChatID возвращает 0, если администратор не настроен
func (c *Config) AdminChatID() int64 {
	id, err := strconv.ParseInt(c.AdminID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

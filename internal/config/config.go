// Пакет config — загрузка и валидация конфигурации StudyOn
// из переменных окружения и необязательного файла app.env (viper).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации StudyOn.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Billing ---

	// Базовый URL billing-сервиса, всегда с завершающим "/"
	BillingURL string

	// --- Сессии ---

	// Секрет для ключей cookie-сессии (пусто — случайный ключ на процесс)
	SessionSecret string
	// Secure flag для cookie (true за HTTPS)
	SecureCookie bool

	// --- Rate limiting (Redis) ---

	// Адрес Redis; пустое значение отключает ограничение попыток входа
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Количество попыток POST /login и /register на окно
	LoginRateLimit int
	// Длительность окна ограничения
	LoginRateWindow time.Duration

	// --- Данные ---

	// Загружать демонстрационные курсы в пустую базу
	SeedFixtures bool

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию, валидирует обязательные поля и возвращает
// Config или ошибку. Переменные окружения имеют приоритет над app.env.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения app.env: %w", err)
		}
	}

	env := &loader{v: v}
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = env.getInt("SO_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SO_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SO_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(env.getDefault("SO_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SO_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = env.getDefault("SO_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SO_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = env.getRequired("SO_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = env.getInt("SO_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SO_DB_PORT: %w", err)
	}
	if cfg.DBName, err = env.getRequired("SO_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = env.getRequired("SO_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = env.getRequired("SO_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = env.getDefault("SO_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SO_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Billing ---

	billingURL, err := env.getRequired("SO_BILLING_URL")
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(billingURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("SO_BILLING_URL: некорректный URL %q", billingURL)
	}
	cfg.BillingURL = strings.TrimRight(billingURL, "/") + "/"

	// --- Сессии ---

	cfg.SessionSecret = env.getDefault("SO_SESSION_SECRET", "")
	cfg.SecureCookie, err = env.getBool("SO_SECURE_COOKIE", false)
	if err != nil {
		return nil, fmt.Errorf("SO_SECURE_COOKIE: %w", err)
	}

	// --- Rate limiting ---

	cfg.RedisAddr = env.getDefault("SO_REDIS_ADDR", "")
	cfg.RedisPassword = env.getDefault("SO_REDIS_PASSWORD", "")
	cfg.RedisDB, err = env.getInt("SO_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("SO_REDIS_DB: %w", err)
	}
	cfg.LoginRateLimit, err = env.getInt("SO_LOGIN_RATE_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("SO_LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.LoginRateLimit < 1 {
		return nil, fmt.Errorf("SO_LOGIN_RATE_LIMIT: значение %d должно быть положительным", cfg.LoginRateLimit)
	}
	cfg.LoginRateWindow, err = env.getDuration("SO_LOGIN_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SO_LOGIN_RATE_WINDOW: %w", err)
	}

	// --- Данные ---

	cfg.SeedFixtures, err = env.getBool("SO_SEED_FIXTURES", false)
	if err != nil {
		return nil, fmt.Errorf("SO_SEED_FIXTURES: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = env.getDefault("SO_DEPHEALTH_GROUP", "study-on")
	cfg.DephealthCheckInterval, err = env.getDuration("SO_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SO_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = env.getDuration("SO_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SO_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loader читает значения через viper: переменная окружения, затем app.env.
type loader struct {
	v *viper.Viper
}

func (l *loader) getRequired(key string) (string, error) {
	val := strings.TrimSpace(l.v.GetString(key))
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

func (l *loader) getDefault(key, defaultVal string) string {
	val := strings.TrimSpace(l.v.GetString(key))
	if val == "" {
		return defaultVal
	}
	return val
}

func (l *loader) getInt(key string, defaultVal int) (int, error) {
	val := l.getDefault(key, "")
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func (l *loader) getBool(key string, defaultVal bool) (bool, error) {
	val := l.getDefault(key, "")
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

func (l *loader) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := l.getDefault(key, "")
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// Пакет database — пул PostgreSQL для каталога курсов, миграции схемы
// каталога (golang-migrate, embedded SQL) и проверка готовности базы.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyon/study-on/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applicationName попадает в pg_stat_activity.
const applicationName = "study-on"

// pingTimeout ограничивает проверку соединения при старте и в readiness.
const pingTimeout = 3 * time.Second

// Connect открывает пул соединений каталога и проверяет доступность базы.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("database.Connect: разбор DSN: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database.Connect: создание пула: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database.Connect: PostgreSQL недоступен: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate приводит схему каталога (course, lesson) к последней версии.
// База в состоянии dirty после прерванной миграции не трогается:
// её нужно исправить вручную (migrate force).
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("database.Migrate: источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("database.Migrate: инициализация: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return fmt.Errorf("database.Migrate: текущая версия: %w", err)
	case dirty:
		return fmt.Errorf("database.Migrate: схема в состоянии dirty на версии %d", before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database.Migrate: применение: %w", err)
	}

	after, _, _ := m.Version()
	if after == before {
		logger.Info("Схема каталога актуальна", slog.Uint64("version", uint64(after)))
		return nil
	}
	logger.Info("Миграции каталога применены",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
	)
	return nil
}

// ReadinessChecker — готовность каталога для /health/ready:
// база доступна и схема каталога создана.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности каталога.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady возвращает "ok", "degraded" (нет таблиц каталога) или "fail".
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	var courseTable, lessonTable *string
	err := c.pool.QueryRow(ctx,
		`SELECT to_regclass('public.course')::text, to_regclass('public.lesson')::text`,
	).Scan(&courseTable, &lessonTable)
	if err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	if courseTable == nil || lessonTable == nil {
		return "degraded", "схема каталога не создана"
	}
	return "ok", "каталог доступен"
}

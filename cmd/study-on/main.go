// Точка входа StudyOn — каталог курсов поверх billing-сервиса.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт billing-клиент, сессии и сервисный слой, запускает
// topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/studyon/study-on/internal/api/handlers"
	"github.com/studyon/study-on/internal/api/middleware"
	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/config"
	"github.com/studyon/study-on/internal/database"
	"github.com/studyon/study-on/internal/fixtures"
	"github.com/studyon/study-on/internal/repository"
	"github.com/studyon/study-on/internal/server"
	"github.com/studyon/study-on/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения и app.env
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("StudyOn запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("billing_url", cfg.BillingURL),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics.
	// Проверка идёт через тот же пул и обнаруживает его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Демонстрационные курсы в пустой базе
	if cfg.SeedFixtures {
		if _, err := fixtures.Seed(ctx, fixtures.NewPostgresStore(pool), logger); err != nil {
			logger.Error("Ошибка загрузки демонстрационных курсов", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 6. Billing-клиент
	billingClient := billing.New(cfg.BillingURL, nil, logger)

	// 7. Сессии и идентичность
	sessions := auth.NewSessionStore(cfg.SessionSecret, cfg.SecureCookie, logger)
	identity := auth.NewIdentityAdapter(billingClient, logger)

	// 8. Repositories
	courseRepo := repository.NewCourseRepository(pool)
	lessonRepo := repository.NewLessonRepository(pool)

	// 9. Services
	catalogSvc := service.NewCatalogService(courseRepo, lessonRepo, billingClient, logger)
	coursesSvc := service.NewCourseService(courseRepo, billingClient, logger)
	lessonsSvc := service.NewLessonService(lessonRepo, courseRepo, billingClient, logger)
	accountSvc := service.NewAccountService(billingClient, courseRepo, identity, logger)

	// 10. Readiness checkers (PostgreSQL + billing)
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), billingClient)

	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		catalogSvc,
		coursesSvc,
		lessonsSvc,
		accountSvc,
		sessions,
		logger,
	)

	// 11. Ограничение попыток входа (опционально, если задан SO_REDIS_ADDR)
	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			logger.Warn("Redis недоступен, лимитер пропускает запросы до восстановления",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", pingErr.Error()),
			)
		}
		limiter = middleware.NewRateLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow, logger)
		logger.Info("Ограничение попыток входа включено",
			slog.Int("limit", cfg.LoginRateLimit),
			slog.String("window", cfg.LoginRateWindow.String()),
		)
	} else {
		logger.Info("Ограничение попыток входа отключено (SO_REDIS_ADDR не задан)")
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + billing)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"study-on",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.BillingURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middleware.NewIdentity(sessions, identity, logger), limiter)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("StudyOn остановлен")
}

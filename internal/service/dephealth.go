// dephealth.go — мониторинг зависимостей через topologymetrics SDK.
//
// StudyOn зависит от двух сервисов:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - billing — HTTP checker к списку курсов API (critical)
//
// Метрики публикуются на /metrics вместе с остальными:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status, app_dependency_status_detail — категория и детали статуса
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для billing
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — мониторинг зависимостей StudyOn.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга с глобальным Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа (study-on)
//   - group — группа в метриках (SO_DEPHEALTH_GROUP)
//   - db — *sql.DB поверх pgxpool (stdlib.OpenDBFromPool)
//   - pgConnURL — URL PostgreSQL для лейблов, без пароля
//   - billingURL — базовый URL API billing
//   - checkInterval — интервал проверок (SO_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	billingURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, pgConnURL, billingURL, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer — то же с отдельным registerer (для тестов).
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	billingURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, db, pgConnURL, billingURL, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	billingURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	billingOpts := []dephealth.DependencyOption{
		dephealth.FromURL(billingURL),
		dephealth.WithHTTPHealthPath(billingHealthPath(billingURL)),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}
	if parsed, err := url.Parse(billingURL); err == nil && parsed.Scheme == "https" {
		billingOpts = append(billingOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 3+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(pgConnURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
		// У billing нет отдельного health endpoint: публичный список курсов
		// отвечает 200 без токена.
		dephealth.HTTP("billing", billingOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// billingHealthPath — путь GET courses относительно базового URL billing.
func billingHealthPath(billingURL string) string {
	path := "/"
	if parsed, err := url.Parse(billingURL); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + "courses"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + billing)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает состояние зависимостей: имя → true, если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// Пакет server — HTTP-сервер StudyOn с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyon/study-on/internal/api/handlers"
	"github.com/studyon/study-on/internal/api/middleware"
	"github.com/studyon/study-on/internal/config"
)

// Server — HTTP-сервер StudyOn.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// limiter может быть nil (ограничение попыток входа отключено).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	identity *middleware.Identity,
	limiter *middleware.RateLimiter,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, handler, identity, limiter),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми маршрутами StudyOn.
func NewRouter(
	logger *slog.Logger,
	handler *handlers.APIHandler,
	identity *middleware.Identity,
	limiter *middleware.RateLimiter,
) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.RequestID())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без сессии
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Group(func(r chi.Router) {
		r.Use(identity.Middleware())

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/courses", http.StatusFound)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", handler.ListCourses)
			r.Get("/new", handler.NewCourse)
			r.Post("/new", handler.CreateCourse)
			r.Get("/{id}", handler.ShowCourse)
			r.Post("/{id}", handler.DeleteCourse)
			r.Get("/{id}/edit", handler.EditCourse)
			r.Post("/{id}/edit", handler.UpdateCourse)
			r.With(middleware.RequireAuthenticated).Get("/{id}/pay", handler.PayCourse)
			r.With(middleware.RequireAuthenticated).Post("/{id}/pay", handler.PayCourse)
		})

		r.Route("/lessons", func(r chi.Router) {
			r.Get("/new", handler.NewLesson)
			r.Post("/new", handler.CreateLesson)
			r.With(middleware.RequireAuthenticated).Get("/{id}", handler.ShowLesson)
			r.Post("/{id}", handler.DeleteLesson)
			r.Get("/{id}/edit", handler.EditLesson)
			r.Post("/{id}/edit", handler.UpdateLesson)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)
			r.Get("/profile", handler.Profile)
			r.Get("/transactions", handler.Transactions)
		})

		r.Get("/login", handler.LoginForm)
		r.Get("/register", handler.RegisterForm)
		r.Get("/logout", handler.Logout)

		if limiter != nil {
			r.With(limiter.Limit("login")).Post("/login", handler.Login)
			r.With(limiter.Limit("register")).Post("/register", handler.Register)
		} else {
			r.Post("/login", handler.Login)
			r.Post("/register", handler.Register)
		}
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

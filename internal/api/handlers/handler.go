// handler.go — основной обработчик HTTP API StudyOn.
// Объединяет доменные обработчики, делегирует запросы в сервисный слой
// и переводит ошибки сервисов в HTTP-ответы.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/studyon/study-on/internal/api/errors"
	"github.com/studyon/study-on/internal/api/middleware"
	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/service"
)

// Поля форм с CSRF-токенами.
const (
	fieldDeleteToken = "_token"
	fieldLoginToken  = "_csrf_token"
)

// Намерения CSRF-токенов форм входа и регистрации.
const (
	intentionLogin    = "authenticate"
	intentionRegister = "register"
)

// maxFormSize — ограничение размера тела формы.
const maxFormSize = 1 << 20

// APIHandler — основной обработчик API StudyOn.
type APIHandler struct {
	health   *HealthHandler
	catalog  *service.CatalogService
	courses  *service.CourseService
	lessons  *service.LessonService
	account  *service.AccountService
	sessions *auth.SessionStore
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	catalog *service.CatalogService,
	courses *service.CourseService,
	lessons *service.LessonService,
	account *service.AccountService,
	sessions *auth.SessionStore,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		catalog:  catalog,
		courses:  courses,
		lessons:  lessons,
		account:  account,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// seeOther — 303 после успешной отправки формы.
func seeOther(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func principal(r *http.Request) model.Principal {
	return middleware.PrincipalFromContext(r.Context())
}

// parseForm разбирает тело формы с ограничением размера.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		apierrors.BadRequest(w, "Invalid form data.")
		return false
	}
	return true
}

// csrfCheck возвращает проверку токена из поля field для намерения сервиса.
func (h *APIHandler) csrfCheck(r *http.Request, field string) service.TokenCheck {
	token := r.PostFormValue(field)
	return func(intention string) error {
		return h.sessions.ValidateCSRF(r, intention, token)
	}
}

// flashes извлекает flash-сообщения. Вызывать до записи тела ответа.
func (h *APIHandler) flashes(w http.ResponseWriter, r *http.Request) []flashJSON {
	items, err := h.sessions.Flashes(w, r)
	if err != nil {
		h.logger.Warn("Не удалось прочитать flash-сообщения", slog.String("error", err.Error()))
		return nil
	}
	return mapFlashes(items)
}

// deleteToken выдаёт CSRF-токен удаления ресурса id. Вызывать до записи тела ответа.
func (h *APIHandler) deleteToken(w http.ResponseWriter, r *http.Request, id string) string {
	token, err := h.sessions.CSRFToken(w, r, service.DeleteIntention(id))
	if err != nil {
		h.logger.Warn("Не удалось выдать CSRF-токен", slog.String("error", err.Error()))
		return ""
	}
	return token
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var credentialsErr *billing.CredentialsError

	switch {
	case errors.As(err, &validationErr):
		apierrors.ValidationFailed(w, validationErr.Fields)
	case errors.Is(err, rbac.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusFound)
	case errors.Is(err, billing.ErrAuthenticationFailed):
		// Токен отклонён billing: нужен повторный вход
		if clearErr := h.sessions.ClearIdentity(w, r); clearErr != nil {
			h.logger.Warn("Не удалось очистить сессию", slog.String("error", clearErr.Error()))
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	case errors.Is(err, auth.ErrInvalidCSRFToken):
		apierrors.InvalidCSRFToken(w)
	case errors.Is(err, service.ErrAuthorizationDenied):
		apierrors.Forbidden(w, "Access denied.")
	case errors.Is(err, service.ErrNotEntitled):
		apierrors.NotEntitled(w, "The course is not paid.")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, billing.ErrNotFound):
		apierrors.NotFound(w, "Not found.")
	case errors.As(err, &credentialsErr):
		apierrors.Unauthorized(w, "Authentication error: "+credentialsErr.Message)
	case errors.Is(err, billing.ErrServiceUnavailable):
		apierrors.BillingUnavailable(w, service.MsgServiceUnavailable)
	case errors.Is(err, billing.ErrMalformedResponse):
		h.logger.Error("Некорректный ответ billing",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.BadGateway(w, service.MsgServiceUnavailable)
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Internal server error.")
	}
}

// --- Разбор форм ---

func parseCourseForm(r *http.Request) (service.CourseForm, error) {
	form := service.CourseForm{
		Code:        r.PostFormValue("code"),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Type:        model.CourseType(strings.TrimSpace(r.PostFormValue("type"))),
	}
	if raw := strings.TrimSpace(r.PostFormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return form, &service.ValidationError{Fields: map[string]string{"price": "This value is not a valid number."}}
		}
		form.Price = price
	}
	return form, nil
}

func parseLessonForm(r *http.Request) (service.LessonForm, error) {
	form := service.LessonForm{
		CourseID: r.PostFormValue("course_id"),
		Title:    r.PostFormValue("title"),
		Content:  r.PostFormValue("content"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("order_number")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return form, &service.ValidationError{Fields: map[string]string{"order_number": "This value is not a valid number."}}
		}
		form.OrderNumber = n
	}
	return form, nil
}

func urlID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

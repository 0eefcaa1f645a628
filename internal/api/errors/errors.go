// Пакет errors — ответы с ошибками в едином формате StudyOn.
// Формат: {"error": {"code": "...", "message": "...", "fields": {...}}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCSRFToken   = "INVALID_CSRF_TOKEN"
	CodeNotEntitled        = "NOT_ENTITLED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeBillingUnavailable = "BILLING_UNAVAILABLE"
	CodeBadGateway         = "BAD_GATEWAY"
	CodeInternalError      = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки. Fields заполняется только для ошибок валидации.
type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	write(w, statusCode, errorDetail{Code: code, Message: message})
}

func write(w http.ResponseWriter, statusCode int, detail errorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: detail})
}

// --- Конструкторы для типичных ошибок ---

// ValidationFailed — 422 с сообщениями по полям формы.
func ValidationFailed(w http.ResponseWriter, fields map[string]string) {
	write(w, http.StatusUnprocessableEntity, errorDetail{
		Code:    CodeValidationError,
		Message: "The submitted form contains errors.",
		Fields:  fields,
	})
}

// BadRequest — 400 некорректный запрос.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 неверные учётные данные.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// InvalidCSRFToken — 403 отсутствующий или неверный CSRF-токен.
func InvalidCSRFToken(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, CodeInvalidCSRFToken, "Invalid CSRF token.")
}

// NotEntitled — 403 курс урока не оплачен.
func NotEntitled(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeNotEntitled, message)
}

// TooManyRequests — 429 превышен лимит попыток.
func TooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, message)
}

// BillingUnavailable — 503 billing-сервис недоступен.
func BillingUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeBillingUnavailable, message)
}

// BadGateway — 502 некорректный ответ billing.
func BadGateway(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeBadGateway, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

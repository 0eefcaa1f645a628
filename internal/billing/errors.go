package billing

import (
	"errors"
	"fmt"
)

// Ошибки billing-клиента. Классы ошибок проверяются через errors.Is.
var (
	// ErrServiceUnavailable — billing недоступен (5xx, сетевая ошибка, таймаут
	// или неожиданный статус операции записи).
	ErrServiceUnavailable = errors.New("billing-сервис недоступен")
	// ErrInvalidCredentials — неверные данные входа или регистрации.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrAuthenticationFailed — токен пользователя не принят billing.
	ErrAuthenticationFailed = errors.New("ошибка аутентификации в billing")
	// ErrNotFound — курс не найден в billing.
	ErrNotFound = errors.New("курс не найден в billing")
	// ErrInsufficientBalance — недостаточно средств для оплаты.
	ErrInsufficientBalance = errors.New("недостаточно средств")
	// ErrMalformedResponse — ответ billing не содержит ожидаемых полей.
	ErrMalformedResponse = errors.New("некорректный ответ billing")
)

// CredentialsError — отказ billing во входе или регистрации
// с сообщением сервера для показа пользователю.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string {
	return e.Message
}

// Unwrap связывает ошибку с ErrInvalidCredentials.
func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

// statusError формирует ошибку класса kind с кодом ответа.
func statusError(op string, kind error, status int, body string) error {
	if body == "" {
		return fmt.Errorf("%s: %w (статус %d)", op, kind, status)
	}
	return fmt.Errorf("%s: %w (статус %d): %s", op, kind, status, truncate(body, 256))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

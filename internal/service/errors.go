// errors.go — ошибки бизнес-логики сервисного слоя.
// Ошибки billing (billing.ErrServiceUnavailable и другие) проходят через
// сервисы обёрнутыми и проверяются вызывающим кодом через errors.Is.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/repository"
)

var (
	// ErrNotFound — курс или урок не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrAuthorizationDenied — у пользователя нет роли для действия.
	ErrAuthorizationDenied = errors.New("доступ запрещён")
	// ErrValidation — нарушены ограничения полей формы.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotEntitled — курс урока не оплачен пользователем.
	ErrNotEntitled = errors.New("курс не оплачен")
)

// ValidationError — ошибки полей формы. errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	// Fields — имя поля формы → сообщение для пользователя
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(names, ", "))
}

// Unwrap связывает ошибку с ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// authorize проверяет политику доступа. Анонимный пользователь получает
// rbac.ErrUnauthenticated, недостаток роли — ErrAuthorizationDenied.
func authorize(principal model.Principal, action rbac.Action, resource rbac.Resource) error {
	err := rbac.Authorize(principal, action, resource)
	if errors.Is(err, rbac.ErrForbidden) {
		return fmt.Errorf("%w: %w", ErrAuthorizationDenied, err)
	}
	return err
}

// notFound переводит repository.ErrNotFound в ErrNotFound сервиса.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

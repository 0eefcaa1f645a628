// courses.go — создание, редактирование и удаление курсов.
// Порядок записи: сначала billing, затем локальная база. Отказ billing
// оставляет локальный каталог без изменений.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/repository"
)

// CourseBilling — операции billing над курсами (billing.Client).
type CourseBilling interface {
	GetCourse(ctx context.Context, code string) (model.BillingCourse, error)
	CreateCourse(ctx context.Context, token string, course model.BillingCourse) error
	EditCourse(ctx context.Context, token, code string, course model.BillingCourse) error
	DeleteCourse(ctx context.Context, token, code string) error
}

// TokenCheck проверяет CSRF-токен запроса для намерения.
type TokenCheck func(intention string) error

// DeleteIntention — намерение CSRF-токена удаления ресурса id.
func DeleteIntention(id string) string {
	return "delete" + id
}

const msgDuplicateCode = "A course with this code already exists."

// CourseService — управление курсами.
type CourseService struct {
	courses repository.CourseRepository
	billing CourseBilling
	logger  *slog.Logger
}

// NewCourseService создаёт сервис курсов.
func NewCourseService(courses repository.CourseRepository, billingClient CourseBilling, logger *slog.Logger) *CourseService {
	return &CourseService{
		courses: courses,
		billing: billingClient,
		logger:  logger.With(slog.String("component", "course_service")),
	}
}

// Create проверяет форму и уникальность кода, создаёт курс в billing,
// затем сохраняет его локально.
func (s *CourseService) Create(ctx context.Context, principal model.Principal, form CourseForm) (*model.Course, error) {
	if err := authorize(principal, rbac.ActionCourseCreate, rbac.Resource{Kind: "course"}); err != nil {
		return nil, err
	}

	form = form.normalize()
	if err := validateForm(form); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode(ctx, form.Code, ""); err != nil {
		return nil, err
	}

	if err := s.billing.CreateCourse(ctx, principal.Token(), form.billingCourse()); err != nil {
		return nil, fmt.Errorf("CourseService.Create: %w", err)
	}

	course := &model.Course{
		ID:          uuid.NewString(),
		Code:        form.Code,
		Title:       form.Title,
		Description: form.description(),
	}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fieldError("code", msgDuplicateCode)
		}
		s.logger.Error("Курс создан в billing, но не сохранён локально",
			slog.String("code", course.Code),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("CourseService.Create: %w", err)
	}

	s.logger.Info("Курс создан",
		slog.String("id", course.ID),
		slog.String("code", course.Code),
		slog.String("type", string(form.Type)),
		slog.String("by", principal.Email()),
	)
	return course, nil
}

// EditForm возвращает форму редактирования. Тип и цена берутся из billing;
// недоступный billing даёт значения по умолчанию.
func (s *CourseService) EditForm(ctx context.Context, principal model.Principal, id string) (*model.Course, CourseForm, error) {
	if err := authorize(principal, rbac.ActionCourseEdit, rbac.Resource{Kind: "course", ID: id}); err != nil {
		return nil, CourseForm{}, err
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, CourseForm{}, fmt.Errorf("CourseService.EditForm: %w", notFound(err, "курс "+id))
	}

	bc, err := s.billing.GetCourse(ctx, course.Code)
	if err != nil {
		s.logger.Warn("Не удалось получить курс из billing для формы",
			slog.String("code", course.Code),
			slog.String("error", err.Error()),
		)
		bc = model.DefaultBillingCourse(course.Code)
	}

	form := CourseForm{
		Code:  course.Code,
		Title: course.Title,
		Type:  bc.Type,
		Price: bc.Price,
	}
	if course.Description != nil {
		form.Description = *course.Description
	}
	return course, form, nil
}

// Update обновляет курс в billing (по прежнему коду), затем локально.
func (s *CourseService) Update(ctx context.Context, principal model.Principal, id string, form CourseForm) (*model.Course, error) {
	if err := authorize(principal, rbac.ActionCourseEdit, rbac.Resource{Kind: "course", ID: id}); err != nil {
		return nil, err
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("CourseService.Update: %w", notFound(err, "курс "+id))
	}

	form = form.normalize()
	if err := validateForm(form); err != nil {
		return nil, err
	}
	if form.Code != course.Code {
		if err := s.ensureUniqueCode(ctx, form.Code, course.ID); err != nil {
			return nil, err
		}
	}

	previousCode := course.Code
	if err := s.billing.EditCourse(ctx, principal.Token(), previousCode, form.billingCourse()); err != nil {
		return nil, fmt.Errorf("CourseService.Update: %w", err)
	}

	course.Code = form.Code
	course.Title = form.Title
	course.Description = form.description()
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fieldError("code", msgDuplicateCode)
		}
		return nil, fmt.Errorf("CourseService.Update: %w", notFound(err, "курс "+id))
	}

	s.logger.Info("Курс обновлён",
		slog.String("id", course.ID),
		slog.String("previous_code", previousCode),
		slog.String("code", course.Code),
		slog.String("by", principal.Email()),
	)
	return course, nil
}

// Delete проверяет CSRF-токен намерения "delete<id>" до любых изменений,
// удаляет курс в billing, затем локально вместе с уроками.
func (s *CourseService) Delete(ctx context.Context, principal model.Principal, id string, check TokenCheck) error {
	if err := authorize(principal, rbac.ActionCourseDelete, rbac.Resource{Kind: "course", ID: id}); err != nil {
		return err
	}
	if err := check(DeleteIntention(id)); err != nil {
		return fmt.Errorf("CourseService.Delete: %w", err)
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("CourseService.Delete: %w", notFound(err, "курс "+id))
	}

	if err := s.billing.DeleteCourse(ctx, principal.Token(), course.Code); err != nil {
		return fmt.Errorf("CourseService.Delete: %w", err)
	}
	if err := s.courses.Delete(ctx, course.ID); err != nil {
		return fmt.Errorf("CourseService.Delete: %w", notFound(err, "курс "+id))
	}

	s.logger.Info("Курс удалён",
		slog.String("id", course.ID),
		slog.String("code", course.Code),
		slog.String("by", principal.Email()),
	)
	return nil
}

// ensureUniqueCode проверяет, что код не занят другим курсом.
func (s *CourseService) ensureUniqueCode(ctx context.Context, code, exceptID string) error {
	existing, err := s.courses.GetByCode(ctx, code)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("проверка уникальности кода: %w", err)
	case existing.ID != exceptID:
		return fieldError("code", msgDuplicateCode)
	}
	return nil
}

// NewForm возвращает пустую форму создания курса (бесплатный курс).
func (s *CourseService) NewForm(principal model.Principal) (CourseForm, error) {
	if err := authorize(principal, rbac.ActionCourseCreate, rbac.Resource{Kind: "course"}); err != nil {
		return CourseForm{}, err
	}
	return CourseForm{Type: model.CourseTypeFree}, nil
}

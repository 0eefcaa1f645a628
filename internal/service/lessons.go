// lessons.go — уроки курсов: управление (администратор) и просмотр
// (пользователь с оплаченным курсом).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/repository"
)

// EntitlementChecker — проверка права на курс (billing.Client).
type EntitlementChecker interface {
	CheckEntitlement(ctx context.Context, token, code string) (model.Entitlement, error)
}

// LessonView — урок с курсом для просмотра.
type LessonView struct {
	Lesson *model.Lesson
	Course *model.Course
}

// LessonService — уроки курсов.
type LessonService struct {
	lessons repository.LessonRepository
	courses repository.CourseRepository
	billing EntitlementChecker
	logger  *slog.Logger
}

// NewLessonService создаёт сервис уроков.
func NewLessonService(
	lessons repository.LessonRepository,
	courses repository.CourseRepository,
	billingClient EntitlementChecker,
	logger *slog.Logger,
) *LessonService {
	return &LessonService{
		lessons: lessons,
		courses: courses,
		billing: billingClient,
		logger:  logger.With(slog.String("component", "lesson_service")),
	}
}

// NewForm возвращает курс, к которому добавляется урок.
func (s *LessonService) NewForm(ctx context.Context, principal model.Principal, courseID string) (*model.Course, error) {
	if err := authorize(principal, rbac.ActionLessonCreate, rbac.Resource{Kind: "lesson"}); err != nil {
		return nil, err
	}
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("LessonService.NewForm: %w", notFound(err, "курс "+courseID))
	}
	return course, nil
}

// Create добавляет урок к существующему курсу.
func (s *LessonService) Create(ctx context.Context, principal model.Principal, form LessonForm) (*model.Lesson, error) {
	if err := authorize(principal, rbac.ActionLessonCreate, rbac.Resource{Kind: "lesson"}); err != nil {
		return nil, err
	}

	form = form.normalize()
	if err := validateForm(form); err != nil {
		return nil, err
	}
	if _, err := s.courses.GetByID(ctx, form.CourseID); err != nil {
		return nil, fmt.Errorf("LessonService.Create: %w", notFound(err, "курс "+form.CourseID))
	}

	lesson := &model.Lesson{
		ID:          uuid.NewString(),
		CourseID:    form.CourseID,
		Title:       form.Title,
		Content:     form.Content,
		OrderNumber: form.OrderNumber,
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("LessonService.Create: %w", notFound(err, "курс "+form.CourseID))
	}

	s.logger.Info("Урок создан",
		slog.String("id", lesson.ID),
		slog.String("course_id", lesson.CourseID),
		slog.Int("order_number", lesson.OrderNumber),
	)
	return lesson, nil
}

// Get возвращает урок. Администратор видит любой урок, остальные —
// только уроки доступных им курсов (иначе ErrNotEntitled).
func (s *LessonService) Get(ctx context.Context, principal model.Principal, id string) (*LessonView, error) {
	if err := authorize(principal, rbac.ActionLessonView, rbac.Resource{Kind: "lesson", ID: id}); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("LessonService.Get: %w", notFound(err, "урок "+id))
	}
	course, err := s.courses.GetByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("LessonService.Get: %w", notFound(err, "курс "+lesson.CourseID))
	}

	if !rbac.IsElevated(principal) {
		ent, err := s.billing.CheckEntitlement(ctx, principal.Token(), course.Code)
		if err != nil {
			return nil, fmt.Errorf("LessonService.Get: %w", err)
		}
		if !ent.Available {
			return nil, fmt.Errorf("%w: %s", ErrNotEntitled, course.Code)
		}
	}

	return &LessonView{Lesson: lesson, Course: course}, nil
}

// EditForm возвращает урок для редактирования.
func (s *LessonService) EditForm(ctx context.Context, principal model.Principal, id string) (*model.Lesson, error) {
	if err := authorize(principal, rbac.ActionLessonEdit, rbac.Resource{Kind: "lesson", ID: id}); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("LessonService.EditForm: %w", notFound(err, "урок "+id))
	}
	return lesson, nil
}

// Update сохраняет урок. Пустой course_id в форме оставляет урок в прежнем курсе.
func (s *LessonService) Update(ctx context.Context, principal model.Principal, id string, form LessonForm) (*model.Lesson, error) {
	if err := authorize(principal, rbac.ActionLessonEdit, rbac.Resource{Kind: "lesson", ID: id}); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("LessonService.Update: %w", notFound(err, "урок "+id))
	}

	if strings.TrimSpace(form.CourseID) == "" {
		form.CourseID = lesson.CourseID
	}
	form = form.normalize()
	if err := validateForm(form); err != nil {
		return nil, err
	}
	if form.CourseID != lesson.CourseID {
		if _, err := s.courses.GetByID(ctx, form.CourseID); err != nil {
			return nil, fmt.Errorf("LessonService.Update: %w", notFound(err, "курс "+form.CourseID))
		}
	}

	lesson.CourseID = form.CourseID
	lesson.Title = form.Title
	lesson.Content = form.Content
	lesson.OrderNumber = form.OrderNumber
	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("LessonService.Update: %w", notFound(err, "урок "+id))
	}
	return lesson, nil
}

// Delete проверяет CSRF-токен и удаляет урок.
// Возвращает ID курса урока для перехода к нему.
func (s *LessonService) Delete(ctx context.Context, principal model.Principal, id string, check TokenCheck) (string, error) {
	if err := authorize(principal, rbac.ActionLessonDelete, rbac.Resource{Kind: "lesson", ID: id}); err != nil {
		return "", err
	}
	if err := check(DeleteIntention(id)); err != nil {
		return "", fmt.Errorf("LessonService.Delete: %w", err)
	}

	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("LessonService.Delete: %w", notFound(err, "урок "+id))
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("LessonService.Delete: %w", notFound(err, "урок "+id))
	}

	s.logger.Info("Урок удалён",
		slog.String("id", id),
		slog.String("course_id", lesson.CourseID),
	)
	return lesson.CourseID, nil
}

func (f LessonForm) normalize() LessonForm {
	f.CourseID = strings.TrimSpace(f.CourseID)
	f.Title = strings.TrimSpace(f.Title)
	return f
}

// catalog.go — сведение локального каталога с данными billing:
// тип и цена курса, право доступа пользователя, срок аренды, достаточность баланса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/repository"
)

// CatalogBilling — операции billing для каталога (billing.Client).
type CatalogBilling interface {
	ListCourses(ctx context.Context) ([]model.BillingCourse, error)
	GetCourse(ctx context.Context, code string) (model.BillingCourse, error)
	CheckEntitlement(ctx context.Context, token, code string) (model.Entitlement, error)
	HasEnoughBalance(ctx context.Context, token, code string) (bool, error)
}

// CourseRow — строка списка курсов.
type CourseRow struct {
	Course    *model.Course
	Type      model.CourseType
	Price     float64
	Available bool
}

// CourseDetail — карточка курса.
type CourseDetail struct {
	Course  *model.Course
	Billing model.BillingCourse
	// Available — пользователь оплатил или арендовал курс
	Available bool
	// ExpiresAt — окончание аренды; nil для покупки и бесплатного курса
	ExpiresAt *time.Time
	// EnoughBalance — хватит ли баланса на оплату (true, если курс уже доступен)
	EnoughBalance bool
	// CanManage — пользователь может редактировать курс
	CanManage bool
}

// CatalogService — список и карточка курса.
type CatalogService struct {
	courses repository.CourseRepository
	lessons repository.LessonRepository
	billing CatalogBilling
	logger  *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(
	courses repository.CourseRepository,
	lessons repository.LessonRepository,
	billingClient CatalogBilling,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		courses: courses,
		lessons: lessons,
		billing: billingClient,
		logger:  logger.With(slog.String("component", "catalog_service")),
	}
}

// List возвращает курсы каталога с типом и ценой из billing.
// Курс без записи в billing считается бесплатным. Для анонимного
// пользователя все курсы недоступны, право в billing не запрашивается.
func (s *CatalogService) List(ctx context.Context, principal model.Principal) ([]CourseRow, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.List: %w", err)
	}

	remote, err := s.billing.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.List: %w", err)
	}
	byCode := make(map[string]model.BillingCourse, len(remote))
	for _, bc := range remote {
		byCode[bc.Code] = bc
	}

	rows := make([]CourseRow, 0, len(courses))
	for _, course := range courses {
		if course.Lessons, err = s.lessons.ListByCourse(ctx, course.ID); err != nil {
			return nil, fmt.Errorf("CatalogService.List: %w", err)
		}

		bc, ok := byCode[course.Code]
		if !ok {
			bc = model.DefaultBillingCourse(course.Code)
		}
		row := CourseRow{Course: course, Type: bc.Type, Price: bc.Price}

		if principal.IsAuthenticated() {
			ent, err := s.billing.CheckEntitlement(ctx, principal.Token(), course.Code)
			if err != nil {
				return nil, fmt.Errorf("CatalogService.List: %w", err)
			}
			row.Available = ent.Available
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Detail возвращает карточку курса с правом доступа пользователя.
// Отсутствие курса в billing — ErrNotFound.
func (s *CatalogService) Detail(ctx context.Context, principal model.Principal, id string) (*CourseDetail, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.Detail: %w", notFound(err, "курс "+id))
	}
	if course.Lessons, err = s.lessons.ListByCourse(ctx, course.ID); err != nil {
		return nil, fmt.Errorf("CatalogService.Detail: %w", err)
	}

	bc, err := s.billing.GetCourse(ctx, course.Code)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			return nil, fmt.Errorf("CatalogService.Detail: %w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("CatalogService.Detail: %w", err)
	}

	detail := &CourseDetail{
		Course:    course,
		Billing:   bc,
		CanManage: principal.IsAuthenticated() && rbac.IsElevated(principal),
	}
	if !principal.IsAuthenticated() {
		return detail, nil
	}

	ent, err := s.billing.CheckEntitlement(ctx, principal.Token(), course.Code)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.Detail: %w", err)
	}
	detail.Available = ent.Available
	if ent.Available && bc.Type == model.CourseTypeRent {
		detail.ExpiresAt = ent.ExpiresAt
	}

	if ent.Available {
		detail.EnoughBalance = true
		return detail, nil
	}

	enough, err := s.billing.HasEnoughBalance(ctx, principal.Token(), course.Code)
	if err != nil {
		return nil, fmt.Errorf("CatalogService.Detail: %w", err)
	}
	detail.EnoughBalance = enough
	return detail, nil
}

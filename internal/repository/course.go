package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyon/study-on/internal/domain/model"
)

// CourseRepository — CRUD таблицы course.
type CourseRepository interface {
	// Create сохраняет новый курс. Дубликат code — ErrConflict.
	Create(ctx context.Context, c *model.Course) error
	// GetByID возвращает курс без уроков.
	GetByID(ctx context.Context, id string) (*model.Course, error)
	// GetByCode возвращает курс по коду.
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	// List возвращает все курсы, упорядоченные по названию.
	List(ctx context.Context) ([]*model.Course, error)
	// Update сохраняет code, title и description.
	Update(ctx context.Context, c *model.Course) error
	// Delete удаляет курс вместе с уроками.
	Delete(ctx context.Context, id string) error
	// Count возвращает количество курсов.
	Count(ctx context.Context) (int, error)
}

type courseRepo struct {
	db DBTX
}

// NewCourseRepository создаёт репозиторий курсов.
func NewCourseRepository(db DBTX) CourseRepository {
	return &courseRepo{db: db}
}

const courseColumns = `id, code, title, description, created_at, updated_at`

func scanCourse(row pgx.Row) (*model.Course, error) {
	c := &model.Course{}
	if err := row.Scan(&c.ID, &c.Code, &c.Title, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *courseRepo) Create(ctx context.Context, c *model.Course) error {
	query := `
		INSERT INTO course (id, code, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, c.ID, c.Code, c.Title, c.Description).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: курс с кодом %s", ErrConflict, c.Code)
		}
		return fmt.Errorf("ошибка создания курса: %w", err)
	}
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	c, err := scanCourse(r.db.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM course WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения курса: %w", err)
	}
	return c, nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	c, err := scanCourse(r.db.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM course WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения курса по коду: %w", err)
	}
	return c, nil
}

func (r *courseRepo) List(ctx context.Context) ([]*model.Course, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+courseColumns+` FROM course ORDER BY title, code`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка курсов: %w", err)
	}
	defer rows.Close()

	var result []*model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования курса: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *courseRepo) Update(ctx context.Context, c *model.Course) error {
	if !validID(c.ID) {
		return ErrNotFound
	}
	query := `
		UPDATE course
		SET code = $2, title = $3, description = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, c.ID, c.Code, c.Title, c.Description).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: курс с кодом %s", ErrConflict, c.Code)
		}
		return fmt.Errorf("ошибка обновления курса: %w", err)
	}
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления курса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *courseRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM course`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта курсов: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyon/study-on/internal/domain/model"
)

// LessonRepository — CRUD таблицы lesson.
type LessonRepository interface {
	// Create сохраняет урок. Несуществующий курс — ErrNotFound.
	Create(ctx context.Context, l *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	// ListByCourse возвращает уроки курса по возрастанию order_number.
	ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error)
	Update(ctx context.Context, l *model.Lesson) error
	Delete(ctx context.Context, id string) error
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

type lessonRepo struct {
	db DBTX
}

// NewLessonRepository создаёт репозиторий уроков.
func NewLessonRepository(db DBTX) LessonRepository {
	return &lessonRepo{db: db}
}

const lessonColumns = `id, course_id, title, content, order_number, created_at, updated_at`

func scanLesson(row pgx.Row, l *model.Lesson) error {
	return row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.OrderNumber, &l.CreatedAt, &l.UpdatedAt)
}

func (r *lessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	if !validID(l.CourseID) {
		return fmt.Errorf("%w: курс %s", ErrNotFound, l.CourseID)
	}
	query := `
		INSERT INTO lesson (id, course_id, title, content, order_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, l.ID, l.CourseID, l.Title, l.Content, l.OrderNumber).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: курс %s", ErrNotFound, l.CourseID)
		}
		return fmt.Errorf("ошибка создания урока: %w", err)
	}
	return nil
}

func (r *lessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	l := &model.Lesson{}
	err := scanLesson(r.db.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lesson WHERE id = $1`, id), l)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения урока: %w", err)
	}
	return l, nil
}

func (r *lessonRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	if !validID(courseID) {
		return []model.Lesson{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+lessonColumns+`
		FROM lesson
		WHERE course_id = $1
		ORDER BY order_number, created_at`, courseID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения уроков курса: %w", err)
	}
	defer rows.Close()

	result := make([]model.Lesson, 0)
	for rows.Next() {
		var l model.Lesson
		if err := scanLesson(rows, &l); err != nil {
			return nil, fmt.Errorf("ошибка сканирования урока: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *lessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	if !validID(l.ID) || !validID(l.CourseID) {
		return ErrNotFound
	}
	query := `
		UPDATE lesson
		SET course_id = $2, title = $3, content = $4, order_number = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, l.ID, l.CourseID, l.Title, l.Content, l.OrderNumber).Scan(&l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: курс %s", ErrNotFound, l.CourseID)
		}
		return fmt.Errorf("ошибка обновления урока: %w", err)
	}
	return nil
}

func (r *lessonRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления урока: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *lessonRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM lesson WHERE course_id = $1`, courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта уроков: %w", err)
	}
	return count, nil
}

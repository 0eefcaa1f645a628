// Пакет fixtures — начальное наполнение каталога демонстрационными курсами.
package fixtures

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/repository"
)

// LessonsPerCourse — количество уроков в каждом демонстрационном курсе.
const LessonsPerCourse = 5

// CourseTitles — демонстрационные курсы. Коды совпадают с курсами billing.
var CourseTitles = []string{
	"Basics of Computer Vision",
	"Python Junior",
	"ROS2 Course",
	"Industrial WEB-development",
	"Introduction to Neural Networks",
}

var lessonTopics = [LessonsPerCourse]string{
	"Prerequisites", "Theory", "Practice", "Test", "Conclusion",
}

// Store — доступ к хранилищу для наполнения.
type Store interface {
	CountCourses(ctx context.Context) (int, error)
	// InTx выполняет fn с репозиториями, работающими в одной транзакции.
	InTx(ctx context.Context, fn func(courses repository.CourseRepository, lessons repository.LessonRepository) error) error
}

// pgStore — Store поверх пула PostgreSQL.
type pgStore struct {
	pool   *pgxpool.Pool
	runner *repository.TxRunner
}

// NewPostgresStore создаёт Store для PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, runner: repository.NewTxRunner(pool)}
}

func (s *pgStore) CountCourses(ctx context.Context) (int, error) {
	return repository.NewCourseRepository(s.pool).Count(ctx)
}

func (s *pgStore) InTx(ctx context.Context, fn func(repository.CourseRepository, repository.LessonRepository) error) error {
	return s.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(repository.NewCourseRepository(tx), repository.NewLessonRepository(tx))
	})
}

// Seed заполняет пустой каталог демонстрационными курсами и уроками
// в одной транзакции. Непустой каталог не изменяется.
// Возвращает количество созданных курсов.
func Seed(ctx context.Context, store Store, logger *slog.Logger) (int, error) {
	logger = logger.With(slog.String("component", "fixtures"))

	count, err := store.CountCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("Seed: %w", err)
	}
	if count > 0 {
		logger.Info("Каталог не пуст, наполнение пропущено", slog.Int("courses", count))
		return 0, nil
	}

	err = store.InTx(ctx, func(courses repository.CourseRepository, lessons repository.LessonRepository) error {
		for _, title := range CourseTitles {
			description := fmt.Sprintf("THERE IS %q DESCRIPTION.", title)
			course := &model.Course{
				ID:          uuid.NewString(),
				Code:        model.Slugify(title),
				Title:       title,
				Description: &description,
			}
			if err := courses.Create(ctx, course); err != nil {
				return err
			}

			for i, topic := range lessonTopics {
				n := i + 1
				lesson := &model.Lesson{
					ID:          uuid.NewString(),
					CourseID:    course.ID,
					Title:       fmt.Sprintf("%s: Lesson %d", title, n),
					Content:     fmt.Sprintf("In lesson %d you're gonna go through %s", n, topic),
					OrderNumber: n,
				}
				if err := lessons.Create(ctx, lesson); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("Seed: %w", err)
	}

	logger.Info("Каталог наполнен демонстрационными курсами",
		slog.Int("courses", len(CourseTitles)),
		slog.Int("lessons", len(CourseTitles)*LessonsPerCourse),
	)
	return len(CourseTitles), nil
}

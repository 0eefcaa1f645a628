package fixtures

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/repository"
	"github.com/studyon/study-on/internal/repository/repotest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSeed_EmptyCatalog(t *testing.T) {
	catalog := repotest.NewCatalog()
	ctx := context.Background()

	created, err := Seed(ctx, catalog, testLogger())
	if err != nil {
		t.Fatalf("Seed() ошибка: %v", err)
	}
	if created != 5 {
		t.Errorf("создано %d курсов, ожидалось 5", created)
	}

	wantCodes := []string{
		"basics-of-computer-vision",
		"python-junior",
		"ros2-course",
		"industrial-web-development",
		"introduction-to-neural-networks",
	}
	for _, code := range wantCodes {
		course, err := catalog.Courses().GetByCode(ctx, code)
		if err != nil {
			t.Errorf("курс %s не создан: %v", code, err)
			continue
		}
		if course.Description == nil {
			t.Errorf("курс %s без описания", code)
		}

		lessons, _ := catalog.Lessons().ListByCourse(ctx, course.ID)
		if len(lessons) != LessonsPerCourse {
			t.Errorf("у курса %s %d уроков, ожидалось %d", code, len(lessons), LessonsPerCourse)
			continue
		}
		if lessons[0].OrderNumber != 1 || lessons[0].Title != course.Title+": Lesson 1" {
			t.Errorf("первый урок %s = %+v", code, lessons[0])
		}
	}
}

func TestSeed_NonEmptyCatalog(t *testing.T) {
	catalog := repotest.NewCatalog()
	ctx := context.Background()

	existing := &model.Course{ID: "c1", Code: "own-course", Title: "Own"}
	if err := catalog.Courses().Create(ctx, existing); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	created, err := Seed(ctx, catalog, testLogger())
	if err != nil {
		t.Fatalf("Seed() ошибка: %v", err)
	}
	if created != 0 {
		t.Errorf("создано %d курсов, непустой каталог не должен меняться", created)
	}
	if n, _ := catalog.CountCourses(ctx); n != 1 {
		t.Errorf("курсов %d, ожидался 1", n)
	}
}

// failingStore срывает транзакцию на третьем курсе.
type failingStore struct {
	*repotest.Catalog
	created int
}

type failingCourses struct {
	repository.CourseRepository
	store *failingStore
}

func (f failingCourses) Create(ctx context.Context, c *model.Course) error {
	f.store.created++
	if f.store.created == 3 {
		return errors.New("диск переполнен")
	}
	return f.CourseRepository.Create(ctx, c)
}

func (s *failingStore) InTx(ctx context.Context, fn func(repository.CourseRepository, repository.LessonRepository) error) error {
	return s.Catalog.InTx(ctx, func(courses repository.CourseRepository, lessons repository.LessonRepository) error {
		return fn(failingCourses{CourseRepository: courses, store: s}, lessons)
	})
}

func TestSeed_RollsBackOnError(t *testing.T) {
	store := &failingStore{Catalog: repotest.NewCatalog()}
	ctx := context.Background()

	if _, err := Seed(ctx, store, testLogger()); err == nil {
		t.Fatal("ожидалась ошибка Seed()")
	}
	if n, _ := store.CountCourses(ctx); n != 0 {
		t.Errorf("после ошибки осталось %d курсов, ожидалось 0", n)
	}
}

// Пакет repotest — хранилище каталога в памяти для тестов сервисов и HTTP-слоя.
// Повторяет поведение PostgreSQL-репозиториев: уникальность code,
// каскадное удаление уроков, сортировку.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/repository"
)

// Catalog — курсы и уроки в памяти.
type Catalog struct {
	mu      sync.Mutex
	courses map[string]model.Course
	lessons map[string]model.Lesson
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{
		courses: make(map[string]model.Course),
		lessons: make(map[string]model.Lesson),
	}
}

// Courses возвращает репозиторий курсов каталога.
func (c *Catalog) Courses() repository.CourseRepository { return courseRepo{c} }

// Lessons возвращает репозиторий уроков каталога.
func (c *Catalog) Lessons() repository.LessonRepository { return lessonRepo{c} }

// CountCourses — количество курсов.
func (c *Catalog) CountCourses(ctx context.Context) (int, error) {
	return c.Courses().Count(ctx)
}

// LessonCount — количество уроков курса (для проверок в тестах).
func (c *Catalog) LessonCount(courseID string) int {
	n, _ := c.Lessons().CountByCourse(context.Background(), courseID)
	return n
}

// InTx выполняет fn над каталогом; при ошибке состояние восстанавливается.
func (c *Catalog) InTx(_ context.Context, fn func(repository.CourseRepository, repository.LessonRepository) error) error {
	c.mu.Lock()
	courses := make(map[string]model.Course, len(c.courses))
	for k, v := range c.courses {
		courses[k] = v
	}
	lessons := make(map[string]model.Lesson, len(c.lessons))
	for k, v := range c.lessons {
		lessons[k] = v
	}
	c.mu.Unlock()

	if err := fn(c.Courses(), c.Lessons()); err != nil {
		c.mu.Lock()
		c.courses, c.lessons = courses, lessons
		c.mu.Unlock()
		return err
	}
	return nil
}

func copyCourse(src model.Course) *model.Course {
	dst := src
	if src.Description != nil {
		d := *src.Description
		dst.Description = &d
	}
	dst.Lessons = nil
	return &dst
}

type courseRepo struct{ c *Catalog }

func (r courseRepo) Create(_ context.Context, course *model.Course) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, existing := range r.c.courses {
		if existing.Code == course.Code {
			return fmt.Errorf("%w: курс с кодом %s", repository.ErrConflict, course.Code)
		}
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	r.c.courses[course.ID] = *copyCourse(*course)
	return nil
}

func (r courseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	course, ok := r.c.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCourse(course), nil
}

func (r courseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, course := range r.c.courses {
		if course.Code == code {
			return copyCourse(course), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r courseRepo) List(_ context.Context) ([]*model.Course, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	result := make([]*model.Course, 0, len(r.c.courses))
	for _, course := range r.c.courses {
		result = append(result, copyCourse(course))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Title != result[j].Title {
			return result[i].Title < result[j].Title
		}
		return result[i].Code < result[j].Code
	})
	return result, nil
}

func (r courseRepo) Update(_ context.Context, course *model.Course) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.courses[course.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.c.courses {
		if id != course.ID && existing.Code == course.Code {
			return fmt.Errorf("%w: курс с кодом %s", repository.ErrConflict, course.Code)
		}
	}
	course.UpdatedAt = time.Now().UTC()
	r.c.courses[course.ID] = *copyCourse(*course)
	return nil
}

func (r courseRepo) Delete(_ context.Context, id string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.c.courses, id)
	for lessonID, l := range r.c.lessons {
		if l.CourseID == id {
			delete(r.c.lessons, lessonID)
		}
	}
	return nil
}

func (r courseRepo) Count(_ context.Context) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return len(r.c.courses), nil
}

type lessonRepo struct{ c *Catalog }

func (r lessonRepo) Create(_ context.Context, l *model.Lesson) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.courses[l.CourseID]; !ok {
		return fmt.Errorf("%w: курс %s", repository.ErrNotFound, l.CourseID)
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	r.c.lessons[l.ID] = *l
	return nil
}

func (r lessonRepo) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	l, ok := r.c.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r lessonRepo) ListByCourse(_ context.Context, courseID string) ([]model.Lesson, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	result := make([]model.Lesson, 0)
	for _, l := range r.c.lessons {
		if l.CourseID == courseID {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].OrderNumber != result[j].OrderNumber {
			return result[i].OrderNumber < result[j].OrderNumber
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r lessonRepo) Update(_ context.Context, l *model.Lesson) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.lessons[l.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.c.courses[l.CourseID]; !ok {
		return fmt.Errorf("%w: курс %s", repository.ErrNotFound, l.CourseID)
	}
	l.UpdatedAt = time.Now().UTC()
	r.c.lessons[l.ID] = *l
	return nil
}

func (r lessonRepo) Delete(_ context.Context, id string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.lessons[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.c.lessons, id)
	return nil
}

func (r lessonRepo) CountByCourse(_ context.Context, courseID string) (int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	n := 0
	for _, l := range r.c.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

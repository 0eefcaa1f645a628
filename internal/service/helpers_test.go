package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/billing/billingtest"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/repository/repotest"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv — фейковый billing, клиент к нему и каталог в памяти.
type testEnv struct {
	fake    *billingtest.Server
	client  *billing.Client
	catalog *repotest.Catalog
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := billingtest.New()
	t.Cleanup(fake.Close)
	return &testEnv{
		fake:    fake,
		client:  billing.New(fake.BaseURL(), fake.Client(), testLogger()),
		catalog: repotest.NewCatalog(),
	}
}

// principal выдаёт пользователю токены фейкового billing.
func (e *testEnv) principal(t *testing.T, email string) model.Principal {
	t.Helper()
	token, refresh := e.fake.IssueTokens(email, time.Hour)
	p, err := auth.NewIdentityAdapter(e.client, testLogger()).
		Principal(model.TokenPair{Token: token, RefreshToken: refresh}, "", nil)
	if err != nil {
		t.Fatalf("Principal(%s): %v", email, err)
	}
	return p
}

func (e *testEnv) user(t *testing.T) model.Principal  { return e.principal(t, billingtest.UserEmail) }
func (e *testEnv) admin(t *testing.T) model.Principal { return e.principal(t, billingtest.AdminEmail) }

// addCourse сохраняет курс в локальном каталоге.
func (e *testEnv) addCourse(t *testing.T, id, code, title string) *model.Course {
	t.Helper()
	course := &model.Course{ID: id, Code: code, Title: title}
	if err := e.catalog.Courses().Create(context.Background(), course); err != nil {
		t.Fatalf("Create(%s): %v", code, err)
	}
	return course
}

// addLesson добавляет урок курсу.
func (e *testEnv) addLesson(t *testing.T, id, courseID string, order int) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{ID: id, CourseID: courseID, Title: "Lesson " + id, Content: "content", OrderNumber: order}
	if err := e.catalog.Lessons().Create(context.Background(), lesson); err != nil {
		t.Fatalf("Create lesson %s: %v", id, err)
	}
	return lesson
}

// validToken — TokenCheck, принимающий любое намерение.
func validToken(string) error { return nil }

// invalidToken — TokenCheck, отклоняющий любое намерение.
func invalidToken(string) error { return auth.ErrInvalidCSRFToken }

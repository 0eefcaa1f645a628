package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/studyon/study-on/internal/api/handlers"
	"github.com/studyon/study-on/internal/api/middleware"
	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/billing/billingtest"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/repository/repotest"
	"github.com/studyon/study-on/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testApp — StudyOn поверх фейкового billing и каталога в памяти.
type testApp struct {
	t       *testing.T
	srv     *httptest.Server
	fake    *billingtest.Server
	catalog *repotest.Catalog
	client  *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := testLogger()

	fake := billingtest.New()
	t.Cleanup(fake.Close)
	billingClient := billing.New(fake.BaseURL(), fake.Client(), logger)
	catalog := repotest.NewCatalog()

	sessions := auth.NewSessionStore("test-session-secret", false, logger)
	identity := auth.NewIdentityAdapter(billingClient, logger)

	handler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(nil, billingClient),
		service.NewCatalogService(catalog.Courses(), catalog.Lessons(), billingClient, logger),
		service.NewCourseService(catalog.Courses(), billingClient, logger),
		service.NewLessonService(catalog.Lessons(), catalog.Courses(), billingClient, logger),
		service.NewAccountService(billingClient, catalog.Courses(), identity, logger),
		sessions,
		logger,
	)
	router := NewRouter(logger, handler, middleware.NewIdentity(sessions, identity, logger), nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	app := &testApp{t: t, srv: srv, fake: fake, catalog: catalog}
	app.client = app.newClient()
	return app
}

// newClient создаёт клиента с собственной cookie-сессией, не следующего редиректам.
func (a *testApp) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		a.t.Fatalf("cookiejar.New: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) get(path string, out any) *http.Response {
	a.t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	if err != nil {
		a.t.Fatalf("GET %s: %v", path, err)
	}
	return a.decode(resp, out)
}

func (a *testApp) post(path string, form url.Values, out any) *http.Response {
	a.t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	if err != nil {
		a.t.Fatalf("POST %s: %v", path, err)
	}
	return a.decode(resp, out)
}

func (a *testApp) decode(resp *http.Response, out any) *http.Response {
	a.t.Helper()
	defer resp.Body.Close()
	if out != nil && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
		}
	}
	return resp
}

// login выполняет вход через форму.
func (a *testApp) login(email string) {
	a.t.Helper()
	var form struct {
		CSRFToken string `json:"csrf_token"`
	}
	a.get("/login", &form)

	resp := a.post("/login", url.Values{
		"email":       {email},
		"password":    {billingtest.Password},
		"_csrf_token": {form.CSRFToken},
	}, nil)
	if resp.StatusCode != http.StatusSeeOther {
		a.t.Fatalf("вход %s: статус %d, ожидался 303", email, resp.StatusCode)
	}
}

func (a *testApp) addCourse(code, title string) *model.Course {
	a.t.Helper()
	course := &model.Course{ID: uuid.NewString(), Code: code, Title: title}
	if err := a.catalog.Courses().Create(context.Background(), course); err != nil {
		a.t.Fatalf("Create(%s): %v", code, err)
	}
	return course
}

func (a *testApp) addLesson(courseID string) *model.Lesson {
	a.t.Helper()
	lesson := &model.Lesson{ID: uuid.NewString(), CourseID: courseID, Title: "Intro", Content: "content", OrderNumber: 1}
	if err := a.catalog.Lessons().Create(context.Background(), lesson); err != nil {
		a.t.Fatalf("Create lesson: %v", err)
	}
	return lesson
}

func (a *testApp) courseCount() int {
	a.t.Helper()
	n, err := a.catalog.CountCourses(context.Background())
	if err != nil {
		a.t.Fatalf("CountCourses: %v", err)
	}
	return n
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("%s %s: статус %d, ожидался %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status)
	}
}

func expectRedirect(t *testing.T, resp *http.Response, status int, location string) {
	t.Helper()
	expectStatus(t, resp, status)
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("Location = %q, ожидался %q", got, location)
	}
}

type flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type courseList struct {
	Courses []struct {
		ID          string  `json:"id"`
		Code        string  `json:"code"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Type        string  `json:"type"`
		Price       float64 `json:"price"`
		IsAvailable bool    `json:"is_available"`
	} `json:"courses"`
}

type courseShow struct {
	Type        string  `json:"course_type"`
	IsAvailable bool    `json:"is_course_available"`
	ExpiresAt   *string `json:"expires_at"`
	CanManage   bool    `json:"can_manage"`
	DeleteToken string  `json:"delete_token"`
	Flashes     []flash `json:"flashes"`
}

type apiError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// --- Каталог ---

func TestCourses_AnonymousList(t *testing.T) {
	app := newTestApp(t)
	app.addCourse("ros2-course", "ROS2 Course")
	app.addCourse("local-only", "Local Only")

	var list courseList
	expectStatus(t, app.get("/courses", &list), http.StatusOK)

	if len(list.Courses) != 2 {
		t.Fatalf("курсов = %d, ожидалось 2", len(list.Courses))
	}
	for _, c := range list.Courses {
		if c.IsAvailable {
			t.Errorf("курс %s доступен анонимному пользователю", c.Code)
		}
		if c.Code == "local-only" && (c.Type != "free" || c.Price != 0) {
			t.Errorf("курс без записи в billing: type=%s price=%v, ожидалось free 0", c.Type, c.Price)
		}
	}
	if n := app.fake.Calls("GET /transactions"); n != 0 {
		t.Errorf("запросов транзакций = %d, ожидалось 0", n)
	}
}

func TestCourses_RootRedirect(t *testing.T) {
	app := newTestApp(t)
	expectRedirect(t, app.get("/", nil), http.StatusFound, "/courses")
}

func TestCourses_NotFound(t *testing.T) {
	app := newTestApp(t)

	var body apiError
	expectStatus(t, app.get("/courses/"+uuid.NewString(), &body), http.StatusNotFound)
	if body.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, ожидался NOT_FOUND", body.Error.Code)
	}
}

func TestCreateCourse_RoundTrip(t *testing.T) {
	app := newTestApp(t)
	app.login(billingtest.AdminEmail)

	resp := app.post("/courses/new", url.Values{
		"code":        {"New_course-1"},
		"title":       {"New course"},
		"description": {"Course description"},
		"type":        {"free"},
	}, nil)
	expectRedirect(t, resp, http.StatusSeeOther, "/courses")

	var list courseList
	app.get("/courses", &list)
	if len(list.Courses) != 1 {
		t.Fatalf("курсов = %d, ожидался 1", len(list.Courses))
	}
	got := list.Courses[0]
	if got.Code != "New_course-1" || got.Title != "New course" {
		t.Errorf("курс = %s %q", got.Code, got.Title)
	}
	if got.Description == nil || *got.Description != "Course description" {
		t.Errorf("description = %v", got.Description)
	}
	if n := app.fake.Calls("POST /courses/new"); n != 1 {
		t.Errorf("создание в billing: %d вызовов, ожидался 1", n)
	}
}

func TestCreateCourse_DuplicateCode(t *testing.T) {
	app := newTestApp(t)
	app.addCourse("python-junior", "Python Junior")
	app.login(billingtest.AdminEmail)

	var body apiError
	resp := app.post("/courses/new", url.Values{
		"code":  {"python-junior"},
		"title": {"Duplicate"},
		"type":  {"free"},
	}, &body)

	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if _, ok := body.Error.Fields["code"]; !ok {
		t.Errorf("fields = %v, ожидалась ошибка поля code", body.Error.Fields)
	}
	if n := app.fake.Calls("POST /courses/new"); n != 0 {
		t.Errorf("создание в billing: %d вызовов, ожидалось 0", n)
	}
	if n := app.courseCount(); n != 1 {
		t.Errorf("курсов = %d, ожидался 1", n)
	}
}

func TestCreateCourse_NonFinitePrice(t *testing.T) {
	for _, price := range []string{"Inf", "+Infinity", "NaN"} {
		t.Run(price, func(t *testing.T) {
			app := newTestApp(t)
			app.login(billingtest.AdminEmail)

			var body apiError
			resp := app.post("/courses/new", url.Values{
				"code":  {"infinite-course"},
				"title": {"Infinite"},
				"type":  {"pay"},
				"price": {price},
			}, &body)

			expectStatus(t, resp, http.StatusUnprocessableEntity)
			if body.Error.Fields["price"] == "" {
				t.Errorf("fields = %v, ожидалась ошибка поля price", body.Error.Fields)
			}
			if n := app.fake.Calls("POST /courses/new"); n != 0 {
				t.Errorf("создание в billing: %d вызовов, ожидалось 0", n)
			}
			if n := app.courseCount(); n != 0 {
				t.Errorf("курсов = %d, ожидалось 0", n)
			}
		})
	}
}

func TestCreateCourse_Access(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		status   int
		location string
	}{
		{name: "анонимный пользователь", status: http.StatusFound, location: "/login"},
		{name: "обычный пользователь", email: billingtest.UserEmail, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			if tt.email != "" {
				app.login(tt.email)
			}
			resp := app.post("/courses/new", url.Values{"code": {"c"}, "title": {"t"}, "type": {"free"}}, nil)
			expectStatus(t, resp, tt.status)
			if tt.location != "" && resp.Header.Get("Location") != tt.location {
				t.Errorf("Location = %q, ожидался %q", resp.Header.Get("Location"), tt.location)
			}
			if n := app.courseCount(); n != 0 {
				t.Errorf("курсов = %d, ожидалось 0", n)
			}
		})
	}
}

func TestDeleteCourse_InvalidCSRF(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("python-junior", "Python Junior")
	app.login(billingtest.AdminEmail)

	resp := app.post("/courses/"+course.ID, url.Values{"_token": {"forged"}}, nil)

	expectStatus(t, resp, http.StatusForbidden)
	if n := app.courseCount(); n != 1 {
		t.Errorf("курсов = %d, ожидался 1", n)
	}
	if n := app.fake.Calls("POST /courses/python-junior/delete"); n != 0 {
		t.Errorf("удаление в billing: %d вызовов, ожидалось 0", n)
	}
}

func TestDeleteCourse(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("python-junior", "Python Junior")
	app.addLesson(course.ID)
	app.login(billingtest.AdminEmail)

	var show courseShow
	app.get("/courses/"+course.ID, &show)
	if !show.CanManage || show.DeleteToken == "" {
		t.Fatalf("администратору не выдан токен удаления: %+v", show)
	}

	resp := app.post("/courses/"+course.ID, url.Values{"_token": {show.DeleteToken}}, nil)

	expectRedirect(t, resp, http.StatusSeeOther, "/courses")
	if n := app.courseCount(); n != 0 {
		t.Errorf("курсов = %d, ожидалось 0", n)
	}
	if n := app.catalog.LessonCount(course.ID); n != 0 {
		t.Errorf("уроков удалённого курса = %d, ожидалось 0", n)
	}
	if _, ok := app.fake.Course("python-junior"); ok {
		t.Error("курс остался в billing")
	}
}

// --- Оплата ---

func TestPayCourse(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("basics-of-computer-vision", "Basics of Computer Vision")
	app.login(billingtest.UserEmail)
	before := len(app.fake.Transactions(billingtest.UserEmail))

	resp := app.post("/courses/"+course.ID+"/pay", url.Values{}, nil)
	expectRedirect(t, resp, http.StatusSeeOther, "/courses/"+course.ID)

	txs := app.fake.Transactions(billingtest.UserEmail)
	if len(txs) != before+1 {
		t.Fatalf("транзакций = %d, ожидалось %d", len(txs), before+1)
	}
	for _, tx := range txs {
		if tx.CourseCode == "basics-of-computer-vision" && tx.ExpiresAt != nil {
			t.Error("у покупки есть expires_at")
		}
	}

	var show courseShow
	app.get("/courses/"+course.ID, &show)
	if !show.IsAvailable {
		t.Error("оплаченный курс недоступен")
	}
	if len(show.Flashes) != 1 || show.Flashes[0].Kind != auth.FlashSuccess || show.Flashes[0].Message != service.MsgCoursePaid {
		t.Errorf("flashes = %+v", show.Flashes)
	}

	// Flash-сообщение показывается один раз
	var again courseShow
	app.get("/courses/"+course.ID, &again)
	if len(again.Flashes) != 0 {
		t.Errorf("повторные flashes = %+v", again.Flashes)
	}
}

func TestPayCourse_InsufficientBalance(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("basics-of-computer-vision", "Basics of Computer Vision")
	app.login(billingtest.NewUserEmail)

	resp := app.post("/courses/"+course.ID+"/pay", url.Values{}, nil)
	expectRedirect(t, resp, http.StatusSeeOther, "/courses/"+course.ID)

	if n := len(app.fake.Transactions(billingtest.NewUserEmail)); n != 0 {
		t.Errorf("транзакций = %d, ожидалось 0", n)
	}

	var show courseShow
	app.get("/courses/"+course.ID, &show)
	if show.IsAvailable {
		t.Error("курс доступен без оплаты")
	}
	if len(show.Flashes) != 1 || show.Flashes[0].Message != service.MsgNotEnoughMoney {
		t.Errorf("flashes = %+v", show.Flashes)
	}
}

func TestPayCourse_Anonymous(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("python-junior", "Python Junior")

	expectRedirect(t, app.post("/courses/"+course.ID+"/pay", url.Values{}, nil), http.StatusFound, "/login")
	if n := app.fake.Calls("POST /courses/python-junior/pay"); n != 0 {
		t.Errorf("оплата в billing: %d вызовов, ожидалось 0", n)
	}
}

// --- Уроки ---

func TestShowLesson(t *testing.T) {
	app := newTestApp(t)
	free := app.addCourse("ros2-course", "ROS2 Course")
	paid := app.addCourse("industrial-web-development", "Industrial WEB-development")
	freeLesson := app.addLesson(free.ID)
	paidLesson := app.addLesson(paid.ID)

	t.Run("анонимный пользователь", func(t *testing.T) {
		expectRedirect(t, app.get("/lessons/"+freeLesson.ID, nil), http.StatusFound, "/login")
	})

	app.login(billingtest.UserEmail)

	t.Run("курс оплачен", func(t *testing.T) {
		var body struct {
			Lesson struct {
				ID string `json:"id"`
			} `json:"lesson"`
		}
		expectStatus(t, app.get("/lessons/"+freeLesson.ID, &body), http.StatusOK)
		if body.Lesson.ID != freeLesson.ID {
			t.Errorf("lesson.id = %q", body.Lesson.ID)
		}
	})

	t.Run("курс не оплачен", func(t *testing.T) {
		var body apiError
		expectStatus(t, app.get("/lessons/"+paidLesson.ID, &body), http.StatusForbidden)
		if body.Error.Code != "NOT_ENTITLED" {
			t.Errorf("code = %q, ожидался NOT_ENTITLED", body.Error.Code)
		}
	})
}

func TestCreateLesson(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("ros2-course", "ROS2 Course")
	app.login(billingtest.AdminEmail)

	resp := app.post("/lessons/new?course_id="+course.ID, url.Values{
		"title":        {"Nodes"},
		"content":      {"Nodes and topics"},
		"order_number": {"3"},
	}, nil)

	expectRedirect(t, resp, http.StatusSeeOther, "/courses/"+course.ID)
	if n := app.catalog.LessonCount(course.ID); n != 1 {
		t.Errorf("уроков = %d, ожидался 1", n)
	}
}

func TestCreateLesson_InvalidOrderNumber(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("ros2-course", "ROS2 Course")
	app.login(billingtest.AdminEmail)

	var body apiError
	resp := app.post("/lessons/new", url.Values{
		"course_id":    {course.ID},
		"title":        {"Nodes"},
		"content":      {"Nodes and topics"},
		"order_number": {"first"},
	}, &body)

	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if _, ok := body.Error.Fields["order_number"]; !ok {
		t.Errorf("fields = %v, ожидалась ошибка order_number", body.Error.Fields)
	}
}

// --- Учётная запись ---

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.login(billingtest.UserEmail)

	var profile struct {
		Email   string  `json:"email"`
		Role    string  `json:"role"`
		Balance float64 `json:"balance"`
	}
	expectStatus(t, app.get("/profile", &profile), http.StatusOK)
	if profile.Email != billingtest.UserEmail || profile.Balance != 1259.99 {
		t.Errorf("profile = %+v", profile)
	}

	// Аутентифицированный пользователь не видит форму входа
	expectRedirect(t, app.get("/login", nil), http.StatusFound, "/profile")
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		password string
		token    func(csrf string) string
		status   int
		message  string
	}{
		{
			name:     "неверный пароль",
			password: "wrong",
			token:    func(csrf string) string { return csrf },
			status:   http.StatusUnauthorized,
			message:  "Authentication error: Invalid credentials.",
		},
		{
			name:     "неверный CSRF-токен",
			password: billingtest.Password,
			token:    func(string) string { return "forged" },
			status:   http.StatusForbidden,
			message:  "Invalid CSRF token.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			var form struct {
				CSRFToken string `json:"csrf_token"`
			}
			app.get("/login", &form)

			var body struct {
				LastUsername string `json:"last_username"`
				Error        string `json:"error"`
			}
			resp := app.post("/login", url.Values{
				"email":       {billingtest.UserEmail},
				"password":    {tt.password},
				"_csrf_token": {tt.token(form.CSRFToken)},
			}, &body)

			expectStatus(t, resp, tt.status)
			if body.Error != tt.message {
				t.Errorf("error = %q, ожидалось %q", body.Error, tt.message)
			}
			if body.LastUsername != billingtest.UserEmail {
				t.Errorf("last_username = %q", body.LastUsername)
			}
			expectRedirect(t, app.get("/profile", nil), http.StatusFound, "/login")
		})
	}
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	var form struct {
		CSRFToken string `json:"csrf_token"`
	}
	app.get("/register", &form)

	resp := app.post("/register", url.Values{
		"email":           {"student@mail.ru"},
		"password":        {"secret123"},
		"password_repeat": {"secret123"},
		"_csrf_token":     {form.CSRFToken},
	}, nil)
	expectRedirect(t, resp, http.StatusSeeOther, "/courses")

	var profile struct {
		Email string `json:"email"`
	}
	expectStatus(t, app.get("/profile", &profile), http.StatusOK)
	if profile.Email != "student@mail.ru" {
		t.Errorf("email = %q", profile.Email)
	}
}

func TestRegister_ExistingEmail(t *testing.T) {
	app := newTestApp(t)

	var form struct {
		CSRFToken string `json:"csrf_token"`
	}
	app.get("/register", &form)

	var body apiError
	resp := app.post("/register", url.Values{
		"email":           {billingtest.UserEmail},
		"password":        {"secret123"},
		"password_repeat": {"secret123"},
		"_csrf_token":     {form.CSRFToken},
	}, &body)

	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if body.Error.Fields["email"] == "" {
		t.Errorf("fields = %v, ожидалась ошибка email", body.Error.Fields)
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.login(billingtest.UserEmail)

	expectRedirect(t, app.get("/logout", nil), http.StatusFound, "/courses")
	expectRedirect(t, app.get("/profile", nil), http.StatusFound, "/login")
}

func TestTransactions(t *testing.T) {
	app := newTestApp(t)
	course := app.addCourse("ros2-course", "ROS2 Course")
	app.login(billingtest.UserEmail)

	var body struct {
		Transactions []struct {
			Type        string `json:"type"`
			CourseID    string `json:"course_id"`
			CourseTitle string `json:"course_title"`
		} `json:"transactions"`
		ServiceUnavailable bool `json:"service_unavailable"`
	}
	expectStatus(t, app.get("/transactions", &body), http.StatusOK)

	if len(body.Transactions) != 2 {
		t.Fatalf("транзакций = %d, ожидалось 2", len(body.Transactions))
	}
	// Новые первыми: оплата создана позже пополнения
	if body.Transactions[0].Type != "payment" || body.Transactions[0].CourseID != course.ID {
		t.Errorf("первая транзакция = %+v", body.Transactions[0])
	}
	if body.Transactions[1].Type != "deposit" || body.Transactions[1].CourseID != "" {
		t.Errorf("вторая транзакция = %+v", body.Transactions[1])
	}
}

func TestTransactions_BillingDown(t *testing.T) {
	app := newTestApp(t)
	app.login(billingtest.UserEmail)
	app.fake.SetDown(true)

	var body struct {
		Transactions       []any  `json:"transactions"`
		ServiceUnavailable bool   `json:"service_unavailable"`
		Message            string `json:"message"`
	}
	expectStatus(t, app.get("/transactions", &body), http.StatusOK)

	if !body.ServiceUnavailable || body.Message != service.MsgServiceUnavailable {
		t.Errorf("ответ = %+v", body)
	}
	if len(body.Transactions) != 0 {
		t.Errorf("транзакций = %d, ожидалось 0", len(body.Transactions))
	}
}

// --- Служебные endpoints ---

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	var live struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	expectStatus(t, app.get("/health/live", &live), http.StatusOK)
	if live.Status != "ok" || live.Service != "study-on" {
		t.Errorf("live = %+v", live)
	}

	// PostgreSQL checker не передан: readiness = fail
	var ready struct {
		Status string `json:"status"`
		Checks struct {
			Billing struct {
				Status string `json:"status"`
			} `json:"billing"`
		} `json:"checks"`
	}
	expectStatus(t, app.get("/health/ready", &ready), http.StatusServiceUnavailable)
	if ready.Status != "fail" || ready.Checks.Billing.Status != "ok" {
		t.Errorf("ready = %+v", ready)
	}
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)
	resp := app.get("/health/live", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("нет заголовка X-Request-ID")
	}
}

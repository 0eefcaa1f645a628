// Пакет billingtest — фейковый billing-сервис для тестов.
// Хранит пользователей, курсы и транзакции в памяти, выдаёт JWT-токены
// и считает вызовы по маршрутам ("POST /courses/new", "GET /transactions").
package billingtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Пользователи по умолчанию.
const (
	UserEmail     = "user@mail.ru"
	AdminEmail    = "admin@mail.ru"
	NewUserEmail  = "new_user@mail.ru"
	Password      = "password"
	RoleUser      = "ROLE_USER"
	RoleSuperUser = "ROLE_SUPER_ADMIN"
)

// RentPeriod — срок аренды курса.
const RentPeriod = 7 * 24 * time.Hour

// User — пользователь фейкового billing.
type User struct {
	Email    string
	Password string
	Roles    []string
	Balance  float64
}

// Course — курс фейкового billing.
type Course struct {
	Code  string
	Type  string
	Price float64
	Title string
}

// Transaction — транзакция фейкового billing.
type Transaction struct {
	ID         int64
	Email      string
	CreatedAt  time.Time
	Type       string
	Amount     float64
	CourseCode string
	ExpiresAt  *time.Time
}

// Server — httptest-сервер с API billing по префиксу /api/v1/.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*User
	courses  map[string]*Course
	txs      []Transaction
	tokens   map[string]string // access token → email
	refresh  map[string]string // refresh token → email
	calls    map[string]int
	down     bool
	tokenTTL time.Duration
	nextTxID int64

	// Now — часы сервера (для аренды и срока токенов).
	Now func() time.Time
}

// New запускает фейковый billing с пользователями и курсами по умолчанию.
func New() *Server {
	s := &Server{
		users:    make(map[string]*User),
		courses:  make(map[string]*Course),
		tokens:   make(map[string]string),
		refresh:  make(map[string]string),
		calls:    make(map[string]int),
		tokenTTL: time.Hour,
		Now:      time.Now,
	}
	s.seed()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth", s.handleAuth)
	mux.HandleFunc("POST /api/v1/register", s.handleRegister)
	mux.HandleFunc("GET /api/v1/users/current", s.handleCurrentUser)
	mux.HandleFunc("POST /api/v1/token/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/courses", s.handleListCourses)
	mux.HandleFunc("POST /api/v1/courses/new", s.handleCreateCourse)
	mux.HandleFunc("GET /api/v1/courses/{code}", s.handleGetCourse)
	mux.HandleFunc("POST /api/v1/courses/{code}", s.handleEditCourse)
	mux.HandleFunc("POST /api/v1/courses/{code}/delete", s.handleDeleteCourse)
	mux.HandleFunc("POST /api/v1/courses/{code}/pay", s.handlePay)
	mux.HandleFunc("GET /api/v1/transactions", s.handleTransactions)

	s.Server = httptest.NewServer(s.counting(mux))
	return s
}

// BaseURL возвращает базовый URL API (с завершающим "/").
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1/"
}

func (s *Server) seed() {
	s.users[UserEmail] = &User{Email: UserEmail, Password: Password, Roles: []string{RoleUser}, Balance: 1259.99}
	s.users[AdminEmail] = &User{Email: AdminEmail, Password: Password, Roles: []string{RoleUser, RoleSuperUser}, Balance: 99999.99}
	s.users[NewUserEmail] = &User{Email: NewUserEmail, Password: Password, Roles: []string{RoleUser}, Balance: 0}

	for _, c := range []Course{
		{Code: "basics-of-computer-vision", Type: "pay", Price: 350.99, Title: "Basics of Computer Vision"},
		{Code: "python-junior", Type: "rent", Price: 299.99, Title: "Python Junior"},
		{Code: "ros2-course", Type: "free", Price: 0, Title: "ROS2 Course"},
		{Code: "industrial-web-development", Type: "pay", Price: 850, Title: "Industrial WEB-development"},
		{Code: "introduction-to-neural-networks", Type: "rent", Price: 500, Title: "Introduction to Neural Networks"},
	} {
		s.courses[c.Code] = &c
	}

	created := time.Now().Add(-30 * 24 * time.Hour).UTC()
	s.addTx(Transaction{Email: UserEmail, CreatedAt: created, Type: "deposit", Amount: 1259.99})
	s.addTx(Transaction{Email: UserEmail, CreatedAt: created.Add(time.Hour), Type: "payment", Amount: 0, CourseCode: "ros2-course"})
}

// --- Управление состоянием из тестов ---

// SetDown переводит сервер в режим отказа: все запросы получают 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Calls возвращает количество запросов к маршруту, например "POST /courses/new".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// AddCourse добавляет или заменяет курс.
func (s *Server) AddCourse(c Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.Code] = &c
}

// Course возвращает копию курса и признак его наличия.
func (s *Server) Course(code string) (Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[code]
	if !ok {
		return Course{}, false
	}
	return *c, true
}

// AddTransaction добавляет транзакцию пользователю.
func (s *Server) AddTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addTx(tx)
}

// Transactions возвращает копию транзакций пользователя.
func (s *Server) Transactions(email string) []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Transaction
	for _, tx := range s.txs {
		if tx.Email == email {
			result = append(result, tx)
		}
	}
	return result
}

// Balance возвращает баланс пользователя.
func (s *Server) Balance(email string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u.Balance
	}
	return 0
}

// IssueTokens выдаёт пользователю пару токенов со сроком ttl (может быть отрицательным).
func (s *Server) IssueTokens(email string, ttl time.Duration) (token, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(email, ttl)
}

func (s *Server) addTx(tx Transaction) {
	s.nextTxID++
	tx.ID = s.nextTxID
	s.txs = append(s.txs, tx)
}

// issue вызывается под s.mu.
func (s *Server) issue(email string, ttl time.Duration) (string, string) {
	user := s.users[email]
	now := s.Now().UTC()
	claims := jwt.MapClaims{
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"username": email,
		"roles":    user.Roles,
		"jti":      uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("billingtest"))
	if err != nil {
		panic(fmt.Sprintf("billingtest: подпись токена: %v", err))
	}
	refreshToken := uuid.NewString()
	s.tokens[token] = email
	s.refresh[refreshToken] = email
	return token, refreshToken
}

// --- HTTP ---

// counting считает вызовы и отвечает 503 в режиме отказа.
func (s *Server) counting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")
		s.mu.Lock()
		s.calls[route]++
		down := s.down
		s.mu.Unlock()

		if down {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"code": 503, "message": "Service Unavailable"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}

// authorized возвращает пользователя по bearer-токену. Вызывается под s.mu.
func (s *Server) authorized(r *http.Request) (*User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	email, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !s.Now().Before(exp.Time) {
		return nil, false
	}
	return s.users[email], true
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[req.Email]
	if !ok || user.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	token, refreshToken := s.issue(user.Email, s.tokenTTL)
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "refresh_token": refreshToken})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":   400,
			"errors": map[string]string{"email": "Invalid email or password"},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	s.users[req.Email] = &User{Email: req.Email, Password: req.Password, Roles: []string{RoleUser}}
	token, refreshToken := s.issue(req.Email, s.tokenTTL)
	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "refresh_token": refreshToken})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid JWT Token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Email,
		"roles":    user.Roles,
		"balance":  user.Balance,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, req.RefreshToken)
	token, refreshToken := s.issue(email, s.tokenTTL)
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "refresh_token": refreshToken})
}

func courseJSON(c *Course) map[string]any {
	return map[string]any{"code": c.Code, "type": c.Type, "price": c.Price, "title": c.Title}
}

func (s *Server) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0, len(s.courses))
	for code := range s.courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]map[string]any, 0, len(codes))
	for _, code := range codes {
		items = append(items, courseJSON(s.courses[code]))
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[r.PathValue("code")]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, courseJSON(c))
}

func (s *Server) decodeCourse(w http.ResponseWriter, r *http.Request) (Course, bool) {
	var body struct {
		Type  string  `json:"type"`
		Title string  `json:"title"`
		Code  string  `json:"code"`
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		writeError(w, http.StatusBadRequest, "Invalid course")
		return Course{}, false
	}
	return Course{Code: body.Code, Type: body.Type, Price: body.Price, Title: body.Title}, true
}

// admin проверяет токен и роль администратора. Вызывается под s.mu.
func (s *Server) admin(w http.ResponseWriter, r *http.Request) bool {
	user, ok := s.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid JWT Token")
		return false
	}
	for _, role := range user.Roles {
		if role == RoleSuperUser {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "Access denied")
	return false
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.decodeCourse(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.admin(w, r) {
		return
	}
	if _, exists := s.courses[course.Code]; exists {
		writeError(w, http.StatusBadRequest, "Course with this code already exists")
		return
	}
	s.courses[course.Code] = &course
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func (s *Server) handleEditCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := s.decodeCourse(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.admin(w, r) {
		return
	}
	code := r.PathValue("code")
	if _, exists := s.courses[code]; !exists {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	delete(s.courses, code)
	s.courses[course.Code] = &course
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.admin(w, r) {
		return
	}
	code := r.PathValue("code")
	if _, exists := s.courses[code]; !exists {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	delete(s.courses, code)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid JWT Token")
		return
	}
	course, ok := s.courses[r.PathValue("code")]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	if user.Balance < course.Price {
		writeError(w, http.StatusNotAcceptable, "На вашем счету недостаточно средств")
		return
	}

	now := s.Now().UTC()
	tx := Transaction{Email: user.Email, CreatedAt: now, Type: "payment", Amount: course.Price, CourseCode: course.Code}
	resp := map[string]any{"success": true, "course_type": course.Type}
	if course.Type == "rent" {
		expires := now.Add(RentPeriod)
		tx.ExpiresAt = &expires
		resp["expires_at"] = expires.Format(time.RFC3339)
	}
	user.Balance -= course.Price
	s.addTx(tx)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.authorized(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid JWT Token")
		return
	}

	q := r.URL.Query()
	code := q.Get("filter[course_code]")
	txType := q.Get("filter[type]")
	skipExpired := q.Get("filter[skip_expired]") == "true"
	now := s.Now()

	items := make([]map[string]any, 0)
	for i := len(s.txs) - 1; i >= 0; i-- {
		tx := s.txs[i]
		if tx.Email != user.Email {
			continue
		}
		if code != "" && tx.CourseCode != code {
			continue
		}
		if txType != "" && tx.Type != txType {
			continue
		}
		if skipExpired && tx.ExpiresAt != nil && tx.ExpiresAt.Before(now) {
			continue
		}
		item := map[string]any{
			"id":         tx.ID,
			"created_at": tx.CreatedAt.Format(time.RFC3339),
			"type":       tx.Type,
			"amount":     tx.Amount,
		}
		if tx.CourseCode != "" {
			item["course_code"] = tx.CourseCode
		}
		if tx.ExpiresAt != nil {
			item["expires_at"] = tx.ExpiresAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// client.go — HTTP-клиент к REST API billing-сервиса StudyOn.
// Каждый метод выполняет один синхронный запрос с таймаутом 10 секунд
// и переводит коды ответа в ошибки пакета. Повторов нет.
// Операции: Authenticate, Register, CurrentUser, RefreshToken, ListCourses,
// GetCourse, Transactions, CheckEntitlement, Pay, HasEnoughBalance,
// CreateCourse, EditCourse, DeleteCourse.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/studyon/study-on/internal/domain/model"
)

// RequestTimeout — таймаут одного запроса к billing.
const RequestTimeout = 10 * time.Second

var (
	billingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "so_billing_requests_total",
			Help: "Количество запросов StudyOn к billing-сервису",
		},
		[]string{"operation", "status"},
	)

	billingRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "so_billing_request_duration_seconds",
			Help:    "Длительность запросов к billing-сервису в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// TransactionFilter — фильтры GET transactions.
type TransactionFilter struct {
	// CourseCode — только транзакции курса
	CourseCode string
	// Type — deposit или payment
	Type model.TransactionType
	// SkipExpired — не возвращать истёкшую аренду
	SkipExpired bool
}

// Client — клиент billing-сервиса. Состояния, кроме базового URL, не хранит.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *slog.Logger
	now     func() time.Time
}

// New создаёт клиент billing.
// baseURL — базовый URL API (например, http://billing.study-on.local/api/v1/).
// httpClient — HTTP-клиент (nil — стандартный).
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(RequestTimeout).
		SetHeader("Accept", "application/json")

	return &Client{
		baseURL: baseURL,
		http:    rc,
		logger:  logger.With(slog.String("component", "billing_client")),
		now:     time.Now,
	}
}

// BaseURL возвращает базовый URL billing.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- HTTP helpers ---

// call выполняет запрос. Сетевая ошибка и 5xx переводятся в ErrServiceUnavailable,
// остальные статусы разбирает вызывающий метод.
func (c *Client) call(ctx context.Context, op, method, path, token string, body any, query url.Values) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	billingRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		billingRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Warn("Billing недоступен",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %v", op, ErrServiceUnavailable, err)
	}

	billingRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode())).Inc()
	c.logger.Debug("Запрос к billing",
		slog.String("operation", op),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("duration", resp.Time()),
	)

	if resp.StatusCode() >= http.StatusInternalServerError {
		c.logger.Warn("Billing вернул ошибку сервера",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode()),
		)
		return nil, statusError(op, ErrServiceUnavailable, resp.StatusCode(), resp.String())
	}
	return resp, nil
}

// decode разбирает JSON-ответ в target.
func decode(op string, resp *resty.Response, target any) error {
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

// unexpected — неожиданный статус: операция считается неудавшейся из-за billing.
func unexpected(op string, resp *resty.Response) error {
	return statusError(op, ErrServiceUnavailable, resp.StatusCode(), resp.String())
}

// credentialsError извлекает сообщение сервера из ответа 400/401.
func credentialsError(resp *resty.Response) error {
	var body errorResponse
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &CredentialsError{Message: msg}
}

func (c *Client) tokenPair(op string, resp *resty.Response) (model.TokenPair, error) {
	var tr tokenResponse
	if err := decode(op, resp, &tr); err != nil {
		return model.TokenPair{}, err
	}
	if tr.Token == "" {
		return model.TokenPair{}, fmt.Errorf("%s: %w: нет token", op, ErrMalformedResponse)
	}
	return model.TokenPair{Token: tr.Token, RefreshToken: tr.RefreshToken}, nil
}

// --- Аутентификация ---

// Authenticate обменивает email и пароль на пару токенов.
func (c *Client) Authenticate(ctx context.Context, email, password string) (model.TokenPair, error) {
	const op = "Authenticate"
	resp, err := c.call(ctx, op, http.MethodPost, "auth", "",
		credentialsRequest{Email: email, Password: password}, nil)
	if err != nil {
		return model.TokenPair{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return c.tokenPair(op, resp)
	case http.StatusBadRequest, http.StatusUnauthorized:
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, credentialsError(resp))
	default:
		return model.TokenPair{}, unexpected(op, resp)
	}
}

// Register создаёт пользователя в billing и возвращает его токены.
func (c *Client) Register(ctx context.Context, email, password string) (model.TokenPair, error) {
	const op = "Register"
	resp, err := c.call(ctx, op, http.MethodPost, "register", "",
		credentialsRequest{Email: email, Password: password}, nil)
	if err != nil {
		return model.TokenPair{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		return c.tokenPair(op, resp)
	case http.StatusBadRequest, http.StatusUnauthorized:
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, credentialsError(resp))
	default:
		return model.TokenPair{}, unexpected(op, resp)
	}
}

// CurrentUser возвращает пользователя, которому выдан token.
func (c *Client) CurrentUser(ctx context.Context, token string) (model.BillingUser, error) {
	const op = "CurrentUser"
	resp, err := c.call(ctx, op, http.MethodGet, "users/current", token, nil, nil)
	if err != nil {
		return model.BillingUser{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return model.BillingUser{}, statusError(op, ErrAuthenticationFailed, resp.StatusCode(), "")
	default:
		return model.BillingUser{}, unexpected(op, resp)
	}

	var ur userResponse
	if err := decode(op, resp, &ur); err != nil {
		return model.BillingUser{}, err
	}
	if ur.Username == "" || ur.Balance == nil {
		return model.BillingUser{}, fmt.Errorf("%s: %w: нет username или balance", op, ErrMalformedResponse)
	}
	return model.BillingUser{Username: ur.Username, Roles: ur.Roles, Balance: *ur.Balance}, nil
}

// RefreshToken получает новую пару токенов по refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	const op = "RefreshToken"
	resp, err := c.call(ctx, op, http.MethodPost, "token/refresh", "",
		refreshRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return model.TokenPair{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return c.tokenPair(op, resp)
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		return model.TokenPair{}, statusError(op, ErrAuthenticationFailed, resp.StatusCode(), "")
	default:
		return model.TokenPair{}, unexpected(op, resp)
	}
}

// --- Курсы ---

// ListCourses возвращает все курсы billing.
func (c *Client) ListCourses(ctx context.Context) ([]model.BillingCourse, error) {
	const op = "ListCourses"
	resp, err := c.call(ctx, op, http.MethodGet, "courses", "", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, unexpected(op, resp)
	}

	var items []courseResponse
	if err := decode(op, resp, &items); err != nil {
		return nil, err
	}

	courses := make([]model.BillingCourse, 0, len(items))
	for _, item := range items {
		course, err := item.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// GetCourse возвращает курс billing по коду.
func (c *Client) GetCourse(ctx context.Context, code string) (model.BillingCourse, error) {
	const op = "GetCourse"
	resp, err := c.call(ctx, op, http.MethodGet, "courses/"+url.PathEscape(code), "", nil, nil)
	if err != nil {
		return model.BillingCourse{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.BillingCourse{}, statusError(op, ErrNotFound, resp.StatusCode(), code)
	default:
		return model.BillingCourse{}, unexpected(op, resp)
	}

	var cr courseResponse
	if err := decode(op, resp, &cr); err != nil {
		return model.BillingCourse{}, err
	}
	course, err := cr.toModel()
	if err != nil {
		return model.BillingCourse{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return course, nil
}

// CreateCourse создаёт курс в billing. Успех — только 201.
func (c *Client) CreateCourse(ctx context.Context, token string, course model.BillingCourse) error {
	const op = "CreateCourse"
	resp, err := c.call(ctx, op, http.MethodPost, "courses/new", token, toCourseRequest(course), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusCreated {
		return unexpected(op, resp)
	}
	return nil
}

// EditCourse обновляет курс billing с кодом code. Успех — только 200.
func (c *Client) EditCourse(ctx context.Context, token, code string, course model.BillingCourse) error {
	const op = "EditCourse"
	resp, err := c.call(ctx, op, http.MethodPost, "courses/"+url.PathEscape(code), token, toCourseRequest(course), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return unexpected(op, resp)
	}
	return nil
}

// DeleteCourse удаляет курс billing. Успех — только 200.
func (c *Client) DeleteCourse(ctx context.Context, token, code string) error {
	const op = "DeleteCourse"
	resp, err := c.call(ctx, op, http.MethodPost, "courses/"+url.PathEscape(code)+"/delete", token, nil, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return unexpected(op, resp)
	}
	return nil
}

func toCourseRequest(course model.BillingCourse) courseRequest {
	price := course.Price
	if course.Type == model.CourseTypeFree {
		price = 0
	}
	return courseRequest{
		Type:  string(course.Type),
		Title: course.Title,
		Code:  course.Code,
		Price: price,
	}
}

// --- Транзакции и оплата ---

// Transactions возвращает транзакции пользователя, новые первыми.
func (c *Client) Transactions(ctx context.Context, token string, filter TransactionFilter) ([]model.Transaction, error) {
	const op = "Transactions"
	query := url.Values{}
	if filter.CourseCode != "" {
		query.Set("filter[course_code]", filter.CourseCode)
	}
	if filter.Type != "" {
		query.Set("filter[type]", string(filter.Type))
	}
	if filter.SkipExpired {
		query.Set("filter[skip_expired]", "true")
	}

	resp, err := c.call(ctx, op, http.MethodGet, "transactions", token, nil, query)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, statusError(op, ErrAuthenticationFailed, resp.StatusCode(), "")
	default:
		return nil, unexpected(op, resp)
	}

	// null, как и [], означает пустую историю: у пользователя нет права на курс
	var items []transactionResponse
	if err := decode(op, resp, &items); err != nil {
		return nil, err
	}

	txs := make([]model.Transaction, 0, len(items))
	for _, item := range items {
		tx, err := item.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		}
		txs = append(txs, tx)
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

// CheckEntitlement вычисляет право пользователя на курс по последней транзакции курса.
func (c *Client) CheckEntitlement(ctx context.Context, token, code string) (model.Entitlement, error) {
	txs, err := c.Transactions(ctx, token, TransactionFilter{CourseCode: code})
	if err != nil {
		return model.Entitlement{}, fmt.Errorf("CheckEntitlement: %w", err)
	}
	return model.ResolveEntitlement(txs, code, c.now()), nil
}

// Pay оплачивает или арендует курс.
func (c *Client) Pay(ctx context.Context, token, code string) (model.PaymentResult, error) {
	const op = "Pay"
	resp, err := c.call(ctx, op, http.MethodPost, "courses/"+url.PathEscape(code)+"/pay", token, nil, nil)
	if err != nil {
		return model.PaymentResult{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNotAcceptable:
		return model.PaymentResult{}, statusError(op, ErrInsufficientBalance, resp.StatusCode(), "")
	case http.StatusUnauthorized:
		return model.PaymentResult{}, statusError(op, ErrAuthenticationFailed, resp.StatusCode(), "")
	case http.StatusNotFound:
		return model.PaymentResult{}, statusError(op, ErrNotFound, resp.StatusCode(), code)
	default:
		return model.PaymentResult{}, unexpected(op, resp)
	}

	var pr payResponse
	if err := decode(op, resp, &pr); err != nil {
		return model.PaymentResult{}, err
	}
	if !pr.Success {
		return model.PaymentResult{}, fmt.Errorf("%s: %w: success=false", op, ErrServiceUnavailable)
	}

	result := model.PaymentResult{CourseType: model.CourseType(pr.CourseType)}
	if pr.ExpiresAt != nil && *pr.ExpiresAt != "" {
		expiresAt, err := parseTime(*pr.ExpiresAt)
		if err != nil {
			return model.PaymentResult{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		}
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

// HasEnoughBalance проверяет, хватит ли баланса пользователя на курс.
// Бесплатный курс доступен при любом балансе.
func (c *Client) HasEnoughBalance(ctx context.Context, token, code string) (bool, error) {
	course, err := c.GetCourse(ctx, code)
	if err != nil {
		return false, fmt.Errorf("HasEnoughBalance: %w", err)
	}
	if course.Type == model.CourseTypeFree {
		return true, nil
	}

	user, err := c.CurrentUser(ctx, token)
	if err != nil {
		return false, fmt.Errorf("HasEnoughBalance: %w", err)
	}
	return user.Balance >= course.Price, nil
}

// CheckReady проверяет доступность billing для /health/ready.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := c.ListCourses(ctx); err != nil {
		return "fail", fmt.Sprintf("billing недоступен: %v", err)
	}
	return "ok", "billing доступен"
}

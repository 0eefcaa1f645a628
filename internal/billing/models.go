// models.go — JSON-структуры API billing-сервиса.
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/studyon/study-on/internal/domain/model"
)

// credentialsRequest — тело POST auth и POST register.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse — ответ auth, register и token/refresh.
type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// refreshRequest — тело POST token/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// userResponse — ответ GET users/current.
type userResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Balance  *float64 `json:"balance"`
}

// courseResponse — курс в ответах GET courses и GET courses/{code}.
type courseResponse struct {
	Code  string   `json:"code"`
	Type  string   `json:"type"`
	Price *float64 `json:"price"`
	Title string   `json:"title,omitempty"`
}

// courseRequest — тело создания и редактирования курса.
type courseRequest struct {
	Type  string  `json:"type"`
	Title string  `json:"title"`
	Code  string  `json:"code"`
	Price float64 `json:"price"`
}

// transactionResponse — транзакция в ответе GET transactions.
type transactionResponse struct {
	ID         int64   `json:"id"`
	CreatedAt  string  `json:"created_at"`
	Type       string  `json:"type"`
	Amount     float64 `json:"amount"`
	CourseCode string  `json:"course_code,omitempty"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
}

// payResponse — ответ POST courses/{code}/pay.
type payResponse struct {
	Success    bool    `json:"success"`
	CourseType string  `json:"course_type,omitempty"`
	ExpiresAt  *string `json:"expires_at,omitempty"`
}

// errorResponse — тело ответа с ошибкой (сообщение или ошибки полей).
type errorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

// text возвращает сообщение для пользователя.
func (e errorResponse) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Error != "":
		return e.Error
	case len(e.Errors) > 0:
		parts := make([]string, 0, len(e.Errors))
		for field, msg := range e.Errors {
			parts = append(parts, field+": "+msg)
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// toModel проверяет обязательные поля курса. Цена может отсутствовать
// только у бесплатного курса и тогда равна 0.
func (c courseResponse) toModel() (model.BillingCourse, error) {
	courseType := model.CourseType(c.Type)
	if c.Code == "" {
		return model.BillingCourse{}, fmt.Errorf("курс без code")
	}
	if !courseType.Valid() {
		return model.BillingCourse{}, fmt.Errorf("курс %s: неизвестный тип %q", c.Code, c.Type)
	}

	price := 0.0
	switch {
	case c.Price != nil:
		price = *c.Price
	case courseType != model.CourseTypeFree:
		return model.BillingCourse{}, fmt.Errorf("курс %s: нет цены для типа %s", c.Code, c.Type)
	}
	if courseType == model.CourseTypeFree {
		price = 0
	}

	return model.BillingCourse{Code: c.Code, Type: courseType, Price: price, Title: c.Title}, nil
}

func (t transactionResponse) toModel() (model.Transaction, error) {
	createdAt, err := parseTime(t.CreatedAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("транзакция %d: created_at: %w", t.ID, err)
	}

	tx := model.Transaction{
		ID:         t.ID,
		CreatedAt:  createdAt,
		Type:       model.TransactionType(t.Type),
		Amount:     t.Amount,
		CourseCode: t.CourseCode,
	}
	if tx.Type != model.TransactionDeposit && tx.Type != model.TransactionPayment {
		return model.Transaction{}, fmt.Errorf("транзакция %d: неизвестный тип %q", t.ID, t.Type)
	}
	if t.ExpiresAt != nil && *t.ExpiresAt != "" {
		expiresAt, err := parseTime(*t.ExpiresAt)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("транзакция %d: expires_at: %w", t.ID, err)
		}
		tx.ExpiresAt = &expiresAt
	}
	return tx, nil
}

// timeLayouts — форматы дат billing (ATOM и SQL-формат без зоны, считается UTC).
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("неизвестный формат даты %q", s)
}

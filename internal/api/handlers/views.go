// views.go — JSON-представления ответов и маппинг доменных моделей в них.
package handlers

import (
	"time"

	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/service"
)

type flashJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type lessonSummaryJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	OrderNumber int    `json:"order_number"`
}

type courseJSON struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Lessons     []lessonSummaryJSON `json:"lessons,omitempty"`
}

type courseRowJSON struct {
	courseJSON
	Type        model.CourseType `json:"type"`
	Price       float64          `json:"price"`
	IsAvailable bool             `json:"is_available"`
}

type courseListResponse struct {
	Courses []courseRowJSON `json:"courses"`
	Flashes []flashJSON     `json:"flashes,omitempty"`
}

type courseShowResponse struct {
	Course          courseJSON       `json:"course"`
	Type            model.CourseType `json:"course_type"`
	Price           float64          `json:"course_price"`
	IsAvailable     bool             `json:"is_course_available"`
	ExpiresAt       *string          `json:"expires_at"`
	IsEnoughBalance bool             `json:"is_enough_balance"`
	CanManage       bool             `json:"can_manage"`
	DeleteToken     string           `json:"delete_token,omitempty"`
	Flashes         []flashJSON      `json:"flashes,omitempty"`
}

type courseFormJSON struct {
	Code        string           `json:"code"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        model.CourseType `json:"type"`
	Price       float64          `json:"price"`
}

type courseFormResponse struct {
	Course      *courseJSON    `json:"course,omitempty"`
	Form        courseFormJSON `json:"form"`
	DeleteToken string         `json:"delete_token,omitempty"`
}

type lessonJSON struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	OrderNumber int    `json:"order_number"`
}

type lessonShowResponse struct {
	Lesson      lessonJSON `json:"lesson"`
	Course      courseJSON `json:"course"`
	DeleteToken string     `json:"delete_token,omitempty"`
}

type lessonFormResponse struct {
	Course      *courseJSON `json:"course,omitempty"`
	Lesson      *lessonJSON `json:"lesson,omitempty"`
	CourseID    string      `json:"course_id"`
	DeleteToken string      `json:"delete_token,omitempty"`
}

type loginResponse struct {
	LastUsername string `json:"last_username"`
	Error        string `json:"error,omitempty"`
	CSRFToken    string `json:"csrf_token"`
}

type registerResponse struct {
	CSRFToken string `json:"csrf_token"`
}

type profileResponse struct {
	Email   string  `json:"email"`
	Role    string  `json:"role"`
	Balance float64 `json:"balance"`
}

type transactionJSON struct {
	ID          int64   `json:"id"`
	CreatedAt   string  `json:"created_at"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	CourseCode  string  `json:"course_code,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	CourseID    string  `json:"course_id,omitempty"`
	CourseTitle string  `json:"course_title,omitempty"`
}

type transactionsResponse struct {
	Transactions       []transactionJSON `json:"transactions"`
	ServiceUnavailable bool              `json:"service_unavailable,omitempty"`
	Message            string            `json:"message,omitempty"`
}

// --- Маппинг ---

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapFlashes(items []auth.Flash) []flashJSON {
	if len(items) == 0 {
		return nil
	}
	result := make([]flashJSON, len(items))
	for i, f := range items {
		result[i] = flashJSON{Kind: f.Kind, Message: f.Message}
	}
	return result
}

func mapCourse(c *model.Course) courseJSON {
	result := courseJSON{
		ID:          c.ID,
		Code:        c.Code,
		Title:       c.Title,
		Description: c.Description,
	}
	for _, l := range c.Lessons {
		result.Lessons = append(result.Lessons, lessonSummaryJSON{ID: l.ID, Title: l.Title, OrderNumber: l.OrderNumber})
	}
	return result
}

func mapCourseForm(f service.CourseForm) courseFormJSON {
	return courseFormJSON{
		Code:        f.Code,
		Title:       f.Title,
		Description: f.Description,
		Type:        f.Type,
		Price:       f.Price,
	}
}

func mapLesson(l *model.Lesson) lessonJSON {
	return lessonJSON{
		ID:          l.ID,
		CourseID:    l.CourseID,
		Title:       l.Title,
		Content:     l.Content,
		OrderNumber: l.OrderNumber,
	}
}

func mapTransaction(row service.TransactionRow) transactionJSON {
	tx := row.Transaction
	return transactionJSON{
		ID:          tx.ID,
		CreatedAt:   tx.CreatedAt.UTC().Format(time.RFC3339),
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		CourseCode:  tx.CourseCode,
		ExpiresAt:   formatTime(tx.ExpiresAt),
		CourseID:    row.CourseID,
		CourseTitle: row.CourseTitle,
	}
}

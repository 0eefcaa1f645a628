// Пакет model — доменные модели каталога StudyOn.
package model

import "time"

// Course — курс каталога.
// Хранится в таблице course; цена и тип курса принадлежат billing-сервису.
type Course struct {
	// ID — UUID курса
	ID string
	// Code — уникальный символьный код, связывает курс с billing
	Code string
	// Title — название курса
	Title string
	// Description — описание (опционально, до 1000 символов)
	Description *string
	// Lessons — уроки курса, упорядоченные по OrderNumber
	Lessons []Lesson
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Lesson — урок курса. Удаляется каскадно вместе с курсом.
type Lesson struct {
	ID       string
	CourseID string
	Title    string
	Content  string
	// OrderNumber — порядковый номер урока (1..10000)
	OrderNumber int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

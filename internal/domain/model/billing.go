package model

import "time"

// CourseType — тип курса в billing-сервисе.
type CourseType string

const (
	CourseTypeFree CourseType = "free"
	CourseTypePay  CourseType = "pay"
	CourseTypeRent CourseType = "rent"
)

// Valid проверяет, что тип курса известен.
func (t CourseType) Valid() bool {
	switch t {
	case CourseTypeFree, CourseTypePay, CourseTypeRent:
		return true
	}
	return false
}

// BillingCourse — сведения о курсе из billing-сервиса (не хранится локально).
type BillingCourse struct {
	Code  string
	Type  CourseType
	Price float64
	// Title — название курса в billing (может отсутствовать)
	Title string
}

// DefaultBillingCourse — значения для курса без записи в billing.
func DefaultBillingCourse(code string) BillingCourse {
	return BillingCourse{Code: code, Type: CourseTypeFree, Price: 0}
}

// TransactionType — тип транзакции billing.
type TransactionType string

const (
	TransactionDeposit TransactionType = "deposit"
	TransactionPayment TransactionType = "payment"
)

// Transaction — транзакция пользователя в billing (только чтение).
type Transaction struct {
	ID        int64
	CreatedAt time.Time
	Type      TransactionType
	Amount    float64
	// CourseCode — код курса (для payment)
	CourseCode string
	// ExpiresAt — окончание аренды (для rent)
	ExpiresAt *time.Time
}

// BillingUser — текущий пользователь billing.
type BillingUser struct {
	Username string
	Roles    []string
	Balance  float64
}

// TokenPair — пара токенов, выданная billing при входе, регистрации или refresh.
type TokenPair struct {
	Token        string
	RefreshToken string
}

// PaymentResult — результат оплаты курса.
type PaymentResult struct {
	CourseType CourseType
	// ExpiresAt — окончание аренды, nil для покупки навсегда
	ExpiresAt *time.Time
}

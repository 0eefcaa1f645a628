package model

import "time"

// Entitlement — право пользователя на курс, вычисляется на каждый запрос.
// Available=false означает "недоступен"; ExpiresAt задан только для аренды.
type Entitlement struct {
	Available bool
	ExpiresAt *time.Time
}

// ResolveEntitlement вычисляет право на курс по транзакциям пользователя.
// Учитывается только последняя по CreatedAt транзакция курса: с ExpiresAt
// она даёт доступ до этой даты включительно, без ExpiresAt — бессрочно.
func ResolveEntitlement(transactions []Transaction, courseCode string, now time.Time) Entitlement {
	var latest *Transaction
	for i := range transactions {
		tx := &transactions[i]
		if tx.CourseCode != "" && tx.CourseCode != courseCode {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}

	if latest == nil {
		return Entitlement{}
	}
	if latest.ExpiresAt == nil {
		return Entitlement{Available: true}
	}
	if latest.ExpiresAt.UTC().Before(now.UTC()) {
		return Entitlement{}
	}

	expires := latest.ExpiresAt.UTC()
	return Entitlement{Available: true, ExpiresAt: &expires}
}

// Пакет rbac — политика доступа StudyOn.
// Роли приходят из billing-сервиса; решение принимает Authorize
// по тройке (пользователь, действие, ресурс) до начала любой операции.
package rbac

import (
	"errors"
	"fmt"

	"github.com/studyon/study-on/internal/domain/model"
)

// Роли billing в порядке возрастания привилегий.
const (
	RoleUser       = "ROLE_USER"
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:       1,
	RoleSuperAdmin: 2,
}

// Action — действие, для которого проверяется доступ.
type Action string

const (
	ActionCourseCreate Action = "course.create"
	ActionCourseEdit   Action = "course.edit"
	ActionCourseDelete Action = "course.delete"
	ActionCoursePay    Action = "course.pay"
	ActionLessonCreate Action = "lesson.create"
	ActionLessonEdit   Action = "lesson.edit"
	ActionLessonDelete Action = "lesson.delete"
	ActionLessonView   Action = "lesson.view"
	ActionProfileView  Action = "profile.view"
	ActionTransactions Action = "transactions.view"
)

// elevated — действия, доступные только RoleSuperAdmin.
var elevated = map[Action]bool{
	ActionCourseCreate: true,
	ActionCourseEdit:   true,
	ActionCourseDelete: true,
	ActionLessonCreate: true,
	ActionLessonEdit:   true,
	ActionLessonDelete: true,
}

var (
	// ErrUnauthenticated — действие требует входа в систему.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrForbidden — у пользователя недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
)

// Resource описывает объект действия (для сообщений и аудита).
type Resource struct {
	Kind string
	ID   string
}

// Authorize возвращает nil, если principal может выполнить action над resource.
// Анонимный пользователь получает ErrUnauthenticated, недостаток роли — ErrForbidden.
func Authorize(principal model.Principal, action Action, resource Resource) error {
	if !principal.IsAuthenticated() {
		return fmt.Errorf("%s %s: %w", action, resource.Kind, ErrUnauthenticated)
	}
	if elevated[action] && !IsElevated(principal) {
		return fmt.Errorf("%s %s %s: %w", action, resource.Kind, resource.ID, ErrForbidden)
	}
	return nil
}

// IsElevated сообщает, есть ли у пользователя роль администратора курсов.
func IsElevated(principal model.Principal) bool {
	return roleWeight[HighestRole(principal.Roles())] >= roleWeight[RoleSuperAdmin]
}

// HighestRole возвращает максимальную известную роль из набора.
// Если известных ролей нет — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// RoleLabel — отображаемое название роли для профиля.
func RoleLabel(roles []string) string {
	if HighestRole(roles) == RoleSuperAdmin {
		return "Administrator"
	}
	return "User"
}

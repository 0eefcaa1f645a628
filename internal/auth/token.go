// Пакет auth — идентичность пользователя StudyOn: разбор токенов billing,
// cookie-сессия (gorilla/sessions), CSRF-токены и восстановление Principal.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnsupportedIdentity — токен отсутствует, повреждён или не обновился.
	// Требует повторного входа.
	ErrUnsupportedIdentity = errors.New("неподдерживаемая идентичность")
	// ErrInvalidCSRFToken — CSRF-токен не совпал с выданным для намерения.
	ErrInvalidCSRFToken = errors.New("некорректный CSRF-токен")
)

// TokenClaims — поля payload токена billing, нужные приложению.
type TokenClaims struct {
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

// tokenParser читает payload без проверки подписи: подпись проверяет billing.
var tokenParser = jwt.NewParser(jwt.WithPaddingAllowed())

// ParseTokenClaims извлекает exp, username и roles из payload токена.
// Подпись не проверяется. roles принимается массивом или JSON-строкой с массивом.
func ParseTokenClaims(token string) (TokenClaims, error) {
	if token == "" {
		return TokenClaims{}, fmt.Errorf("%w: пустой токен", ErrUnsupportedIdentity)
	}

	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil &&
		!errors.Is(err, jwt.ErrTokenUnverifiable) {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrUnsupportedIdentity, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return TokenClaims{}, fmt.Errorf("%w: нет exp", ErrUnsupportedIdentity)
	}

	roles, err := parseRoles(claims["roles"])
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: roles: %v", ErrUnsupportedIdentity, err)
	}

	username, _ := claims["username"].(string)
	return TokenClaims{
		Username:  username,
		Roles:     roles,
		ExpiresAt: exp.UTC(),
	}, nil
}

func parseRoles(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			role, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("роль не строка: %v", item)
			}
			roles = append(roles, role)
		}
		return roles, nil
	case string:
		var roles []string
		if err := json.Unmarshal([]byte(v), &roles); err != nil {
			return nil, err
		}
		return roles, nil
	default:
		return nil, fmt.Errorf("неожиданный тип %T", raw)
	}
}

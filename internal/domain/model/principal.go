package model

import (
	"slices"
	"time"
)

// Principal — аутентифицированный пользователь текущего запроса.
// Значение неизменяемо: обновление токенов создаёт новый Principal.
// Нулевое значение — анонимный пользователь.
type Principal struct {
	email        string
	roles        []string
	token        string
	refreshToken string
	expiresAt    time.Time
}

// NewPrincipal создаёт Principal из данных сессии и срока действия токена.
func NewPrincipal(email string, roles []string, tokens TokenPair, expiresAt time.Time) Principal {
	return Principal{
		email:        email,
		roles:        slices.Clone(roles),
		token:        tokens.Token,
		refreshToken: tokens.RefreshToken,
		expiresAt:    expiresAt.UTC(),
	}
}

// Anonymous возвращает Principal неаутентифицированного пользователя.
func Anonymous() Principal {
	return Principal{}
}

// WithTokens возвращает копию с новой парой токенов и сроком действия.
// Пустой refresh token сохраняет прежний.
func (p Principal) WithTokens(tokens TokenPair, expiresAt time.Time) Principal {
	next := p
	next.roles = slices.Clone(p.roles)
	next.token = tokens.Token
	if tokens.RefreshToken != "" {
		next.refreshToken = tokens.RefreshToken
	}
	next.expiresAt = expiresAt.UTC()
	return next
}

func (p Principal) Email() string        { return p.email }
func (p Principal) Roles() []string      { return slices.Clone(p.roles) }
func (p Principal) Token() string        { return p.token }
func (p Principal) RefreshToken() string { return p.refreshToken }
func (p Principal) ExpiresAt() time.Time { return p.expiresAt }

// IsAuthenticated сообщает, есть ли у пользователя токен billing.
func (p Principal) IsAuthenticated() bool {
	return p.token != ""
}

// HasRole проверяет наличие роли.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.roles, role)
}

// IsExpired сообщает, истёк ли токен к моменту now (сравнение в UTC).
func (p Principal) IsExpired(now time.Time) bool {
	return !now.UTC().Before(p.expiresAt)
}

// identity.go — восстановление пользователя запроса из cookie-сессии.
//
// Для каждого запроса:
//  1. Читает идентичность из сессии (нет сессии — анонимный пользователь)
//  2. Восстанавливает model.Principal, при истёкшем токене обновляет его через billing
//  3. Обновлённую пару токенов записывает обратно в сессию
//  4. Непригодную идентичность удаляет из сессии, запрос продолжается анонимно
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/domain/model"
)

type principalKey struct{}

// IdentityResolver восстанавливает Principal из данных сессии (auth.IdentityAdapter).
type IdentityResolver interface {
	Resolve(ctx context.Context, data auth.SessionData) (model.Principal, bool, error)
}

// Identity — middleware идентичности пользователя.
type Identity struct {
	sessions *auth.SessionStore
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewIdentity создаёт middleware идентичности.
func NewIdentity(sessions *auth.SessionStore, resolver IdentityResolver, logger *slog.Logger) *Identity {
	return &Identity{
		sessions: sessions,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "identity_middleware")),
	}
}

// Middleware возвращает HTTP middleware, помещающий Principal в контекст.
func (m *Identity) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := m.resolve(w, r)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func (m *Identity) resolve(w http.ResponseWriter, r *http.Request) model.Principal {
	data, err := m.sessions.Load(r)
	if err != nil {
		m.logger.Debug("Сессия не прочитана",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
		return model.Anonymous()
	}
	if data == nil {
		return model.Anonymous()
	}

	principal, refreshed, err := m.resolver.Resolve(r.Context(), *data)
	if err != nil {
		m.logger.Info("Идентичность сессии отклонена",
			slog.String("email", data.Email),
			slog.String("error", err.Error()),
		)
		if clearErr := m.sessions.ClearIdentity(w, r); clearErr != nil {
			m.logger.Warn("Не удалось очистить сессию", slog.String("error", clearErr.Error()))
		}
		return model.Anonymous()
	}

	if refreshed {
		if err := m.sessions.SaveIdentity(w, r, auth.SessionDataFor(principal)); err != nil {
			m.logger.Warn("Не удалось сохранить обновлённый токен",
				slog.String("email", principal.Email()),
				slog.String("error", err.Error()),
			)
		}
	}
	return principal
}

// WithPrincipal возвращает контекст с Principal.
func WithPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext возвращает Principal запроса; без middleware — анонимный.
func PrincipalFromContext(ctx context.Context) model.Principal {
	principal, ok := ctx.Value(principalKey{}).(model.Principal)
	if !ok {
		return model.Anonymous()
	}
	return principal
}

// RequireAuthenticated перенаправляет анонимного пользователя на /login (302).
// Должен использоваться ПОСЛЕ Identity.Middleware().
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

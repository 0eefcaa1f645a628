package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyon/study-on/internal/domain/model"
)

// TokenRefresher — обмен refresh token на новую пару (billing.Client).
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// IdentityAdapter восстанавливает Principal из сессии и обновляет
// истёкший токен через billing.
type IdentityAdapter struct {
	refresher TokenRefresher
	logger    *slog.Logger
	now       func() time.Time
}

// NewIdentityAdapter создаёт адаптер идентичности.
func NewIdentityAdapter(refresher TokenRefresher, logger *slog.Logger) *IdentityAdapter {
	return &IdentityAdapter{
		refresher: refresher,
		logger:    logger.With(slog.String("component", "identity")),
		now:       time.Now,
	}
}

// Principal строит Principal из пары токенов. Email и роли берутся из
// аргументов, а при их отсутствии из claims токена.
func (a *IdentityAdapter) Principal(tokens model.TokenPair, email string, roles []string) (model.Principal, error) {
	claims, err := ParseTokenClaims(tokens.Token)
	if err != nil {
		return model.Principal{}, err
	}
	if email == "" {
		email = claims.Username
	}
	if len(roles) == 0 {
		roles = claims.Roles
	}
	return model.NewPrincipal(email, roles, tokens, claims.ExpiresAt), nil
}

// Resolve восстанавливает Principal из данных сессии.
// Если now >= exp (в UTC), токен обновляется через refresh token;
// refreshed=true означает, что сессию нужно перезаписать.
// Любой сбой возвращает ErrUnsupportedIdentity.
func (a *IdentityAdapter) Resolve(ctx context.Context, data SessionData) (principal model.Principal, refreshed bool, err error) {
	principal, err = a.Principal(model.TokenPair{Token: data.Token, RefreshToken: data.RefreshToken}, data.Email, data.Roles)
	if err != nil {
		return model.Principal{}, false, err
	}
	if !principal.IsExpired(a.now()) {
		return principal, false, nil
	}

	if principal.RefreshToken() == "" {
		return model.Principal{}, false, fmt.Errorf("%w: токен истёк, refresh token отсутствует", ErrUnsupportedIdentity)
	}

	tokens, err := a.refresher.RefreshToken(ctx, principal.RefreshToken())
	if err != nil {
		a.logger.Info("Не удалось обновить токен",
			slog.String("email", principal.Email()),
			slog.String("error", err.Error()),
		)
		return model.Principal{}, false, fmt.Errorf("%w: %v", ErrUnsupportedIdentity, err)
	}

	claims, err := ParseTokenClaims(tokens.Token)
	if err != nil {
		return model.Principal{}, false, err
	}

	a.logger.Debug("Токен обновлён через refresh token",
		slog.String("email", principal.Email()),
		slog.Time("expires_at", claims.ExpiresAt),
	)
	return principal.WithTokens(tokens, claims.ExpiresAt), true, nil
}

// SessionDataFor возвращает данные сессии для principal.
func SessionDataFor(principal model.Principal) SessionData {
	return SessionData{
		Token:        principal.Token(),
		RefreshToken: principal.RefreshToken(),
		Email:        principal.Email(),
		Roles:        principal.Roles(),
	}
}

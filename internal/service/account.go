// account.go — вход, регистрация, профиль, история транзакций и оплата курсов.
// Деньги и учётные записи принадлежат billing; сервис только передаёт
// запросы и сопоставляет ответы с локальным каталогом.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/domain/rbac"
	"github.com/studyon/study-on/internal/repository"
)

// Сообщения об исходе оплаты.
const (
	MsgCoursePaid         = "Course successfully paid!"
	MsgNotEnoughMoney     = "Not enough money for payment."
	MsgServiceUnavailable = "Service is temporarily unavailable. Try again later."
)

// AccountBilling — операции billing для учётной записи (billing.Client).
type AccountBilling interface {
	Authenticate(ctx context.Context, email, password string) (model.TokenPair, error)
	Register(ctx context.Context, email, password string) (model.TokenPair, error)
	CurrentUser(ctx context.Context, token string) (model.BillingUser, error)
	Transactions(ctx context.Context, token string, filter billing.TransactionFilter) ([]model.Transaction, error)
	Pay(ctx context.Context, token, code string) (model.PaymentResult, error)
}

// Profile — сводка о пользователе.
type Profile struct {
	Email     string
	RoleLabel string
	Balance   float64
}

// TransactionRow — транзакция с курсом каталога (для оплаты курса).
type TransactionRow struct {
	Transaction model.Transaction
	CourseID    string
	CourseTitle string
}

// AccountService — учётная запись пользователя.
type AccountService struct {
	billing  AccountBilling
	courses  repository.CourseRepository
	identity *auth.IdentityAdapter
	logger   *slog.Logger
}

// NewAccountService создаёт сервис учётной записи.
func NewAccountService(
	billingClient AccountBilling,
	courses repository.CourseRepository,
	identity *auth.IdentityAdapter,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		billing:  billingClient,
		courses:  courses,
		identity: identity,
		logger:   logger.With(slog.String("component", "account_service")),
	}
}

// Login обменивает email и пароль на токены billing и возвращает Principal.
// Отказ billing — billing.ErrInvalidCredentials (*billing.CredentialsError).
func (s *AccountService) Login(ctx context.Context, form LoginForm) (model.Principal, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validateForm(form); err != nil {
		return model.Principal{}, err
	}

	tokens, err := s.billing.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		s.logger.Info("Неудачная попытка входа",
			slog.String("email", form.Email),
			slog.String("error", err.Error()),
		)
		return model.Principal{}, fmt.Errorf("AccountService.Login: %w", err)
	}

	principal, err := s.principalFor(ctx, tokens)
	if err != nil {
		return model.Principal{}, fmt.Errorf("AccountService.Login: %w", err)
	}
	s.logger.Info("Пользователь вошёл", slog.String("email", principal.Email()))
	return principal, nil
}

// Register создаёт пользователя в billing и сразу выполняет вход.
func (s *AccountService) Register(ctx context.Context, form RegistrationForm) (model.Principal, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := validateForm(form); err != nil {
		return model.Principal{}, err
	}

	tokens, err := s.billing.Register(ctx, form.Email, form.Password)
	if err != nil {
		return model.Principal{}, fmt.Errorf("AccountService.Register: %w", err)
	}

	principal, err := s.principalFor(ctx, tokens)
	if err != nil {
		return model.Principal{}, fmt.Errorf("AccountService.Register: %w", err)
	}
	s.logger.Info("Пользователь зарегистрирован", slog.String("email", principal.Email()))
	return principal, nil
}

// principalFor запрашивает email и роли владельца токена.
func (s *AccountService) principalFor(ctx context.Context, tokens model.TokenPair) (model.Principal, error) {
	user, err := s.billing.CurrentUser(ctx, tokens.Token)
	if err != nil {
		return model.Principal{}, err
	}
	return s.identity.Principal(tokens, user.Username, user.Roles)
}

// Profile возвращает email, роль и актуальный баланс пользователя.
func (s *AccountService) Profile(ctx context.Context, principal model.Principal) (*Profile, error) {
	if err := authorize(principal, rbac.ActionProfileView, rbac.Resource{Kind: "profile"}); err != nil {
		return nil, err
	}

	user, err := s.billing.CurrentUser(ctx, principal.Token())
	if err != nil {
		return nil, fmt.Errorf("AccountService.Profile: %w", err)
	}

	roles := user.Roles
	if len(roles) == 0 {
		roles = principal.Roles()
	}
	return &Profile{
		Email:     user.Username,
		RoleLabel: rbac.RoleLabel(roles),
		Balance:   user.Balance,
	}, nil
}

// Transactions возвращает историю, новые первыми. Оплаты курсов
// дополняются ID и названием локального курса, если он есть.
func (s *AccountService) Transactions(ctx context.Context, principal model.Principal) ([]TransactionRow, error) {
	if err := authorize(principal, rbac.ActionTransactions, rbac.Resource{Kind: "transactions"}); err != nil {
		return nil, err
	}

	txs, err := s.billing.Transactions(ctx, principal.Token(), billing.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("AccountService.Transactions: %w", err)
	}

	courses := make(map[string]*model.Course)
	rows := make([]TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row := TransactionRow{Transaction: tx}
		if tx.Type == model.TransactionPayment && tx.CourseCode != "" {
			course, ok := courses[tx.CourseCode]
			if !ok {
				course, err = s.courses.GetByCode(ctx, tx.CourseCode)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("AccountService.Transactions: %w", err)
				}
				courses[tx.CourseCode] = course
			}
			if course != nil {
				row.CourseID = course.ID
				row.CourseTitle = course.Title
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Pay оплачивает или арендует курс каталога через billing.
// Недостаток средств — billing.ErrInsufficientBalance, новая транзакция не создаётся.
func (s *AccountService) Pay(ctx context.Context, principal model.Principal, courseID string) (*model.Course, model.PaymentResult, error) {
	if err := authorize(principal, rbac.ActionCoursePay, rbac.Resource{Kind: "course", ID: courseID}); err != nil {
		return nil, model.PaymentResult{}, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, model.PaymentResult{}, fmt.Errorf("AccountService.Pay: %w", notFound(err, "курс "+courseID))
	}

	result, err := s.billing.Pay(ctx, principal.Token(), course.Code)
	if err != nil {
		s.logger.Info("Оплата курса не выполнена",
			slog.String("code", course.Code),
			slog.String("email", principal.Email()),
			slog.String("error", err.Error()),
		)
		return course, model.PaymentResult{}, fmt.Errorf("AccountService.Pay: %w", err)
	}

	attrs := []any{
		slog.String("code", course.Code),
		slog.String("email", principal.Email()),
		slog.String("type", string(result.CourseType)),
	}
	if result.ExpiresAt != nil {
		attrs = append(attrs, slog.String("expires_at", result.ExpiresAt.Format(time.RFC3339)))
	}
	s.logger.Info("Курс оплачен", attrs...)
	return course, result, nil
}

// PaymentOutcome переводит результат оплаты во flash-сообщение.
// ok=false — ошибка не относится к исходу оплаты и обрабатывается вызывающим.
func PaymentOutcome(err error) (kind, message string, ok bool) {
	switch {
	case err == nil:
		return auth.FlashSuccess, MsgCoursePaid, true
	case errors.Is(err, billing.ErrInsufficientBalance):
		return auth.FlashError, MsgNotEnoughMoney, true
	case errors.Is(err, billing.ErrServiceUnavailable), errors.Is(err, billing.ErrMalformedResponse):
		return auth.FlashError, MsgServiceUnavailable, true
	}
	return "", "", false
}

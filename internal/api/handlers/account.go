// account.go — обработчики входа, регистрации, выхода, профиля и истории транзакций.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/studyon/study-on/internal/api/errors"
	"github.com/studyon/study-on/internal/auth"
	"github.com/studyon/study-on/internal/billing"
	"github.com/studyon/study-on/internal/domain/model"
	"github.com/studyon/study-on/internal/service"
)

// LoginForm — GET /login.
// Аутентифицированный пользователь перенаправляется в профиль.
func (h *APIHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if principal(r).IsAuthenticated() {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}
	h.writeLogin(w, r, http.StatusOK, "", "")
}

// Login — POST /login.
// Поля email, password, _csrf_token (намерение "authenticate").
// Успех — 303 на /courses, отказ billing — 401 с сообщением сервера.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form := service.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if err := h.sessions.ValidateCSRF(r, intentionLogin, r.PostFormValue(fieldLoginToken)); err != nil {
		h.writeLogin(w, r, http.StatusForbidden, form.Email, "Invalid CSRF token.")
		return
	}

	p, err := h.account.Login(r.Context(), form)
	var credentialsErr *billing.CredentialsError
	switch {
	case errors.As(err, &credentialsErr):
		h.writeLogin(w, r, http.StatusUnauthorized, form.Email, "Authentication error: "+credentialsErr.Message)
		return
	case errors.Is(err, service.ErrValidation):
		h.writeLogin(w, r, http.StatusUnauthorized, form.Email, "Authentication error: Invalid credentials.")
		return
	case err != nil:
		h.writeServiceError(w, r, err)
		return
	}

	h.signIn(w, r, p)
}

// writeLogin отвечает представлением формы входа.
func (h *APIHandler) writeLogin(w http.ResponseWriter, r *http.Request, status int, lastUsername, message string) {
	token, err := h.sessions.CSRFToken(w, r, intentionLogin)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, loginResponse{
		LastUsername: strings.TrimSpace(lastUsername),
		Error:        message,
		CSRFToken:    token,
	})
}

// RegisterForm — GET /register.
func (h *APIHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if principal(r).IsAuthenticated() {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}
	token, err := h.sessions.CSRFToken(w, r, intentionRegister)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{CSRFToken: token})
}

// Register — POST /register.
// Поля email, password, password_repeat, _csrf_token (намерение "register").
// Отказ billing показывается как ошибка поля email.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	if principal(r).IsAuthenticated() {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}
	if !parseForm(w, r) {
		return
	}
	if err := h.sessions.ValidateCSRF(r, intentionRegister, r.PostFormValue(fieldLoginToken)); err != nil {
		apierrors.InvalidCSRFToken(w)
		return
	}

	p, err := h.account.Register(r.Context(), service.RegistrationForm{
		Email:          r.PostFormValue("email"),
		Password:       r.PostFormValue("password"),
		PasswordRepeat: r.PostFormValue("password_repeat"),
	})
	var credentialsErr *billing.CredentialsError
	switch {
	case errors.As(err, &credentialsErr):
		apierrors.ValidationFailed(w, map[string]string{"email": credentialsErr.Message})
		return
	case err != nil:
		h.writeServiceError(w, r, err)
		return
	}

	h.signIn(w, r, p)
}

// signIn сохраняет идентичность в сессии и перенаправляет на /courses.
func (h *APIHandler) signIn(w http.ResponseWriter, r *http.Request, p model.Principal) {
	if err := h.sessions.SaveIdentity(w, r, auth.SessionDataFor(p)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	seeOther(w, r, "/courses")
}

// Logout — GET /logout.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.Warn("Не удалось удалить сессию", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/courses", http.StatusFound)
}

// Profile — GET /profile.
// Email, роль и актуальный баланс. Доступ: аутентифицированный пользователь.
func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.account.Profile(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Email:   profile.Email,
		Role:    profile.RoleLabel,
		Balance: profile.Balance,
	})
}

// Transactions — GET /transactions.
// История, новые первыми. При недоступном billing — пустой список
// с признаком service_unavailable и статусом 200.
func (h *APIHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.account.Transactions(r.Context(), principal(r))
	switch {
	case errors.Is(err, billing.ErrServiceUnavailable):
		writeJSON(w, http.StatusOK, transactionsResponse{
			Transactions:       []transactionJSON{},
			ServiceUnavailable: true,
			Message:            service.MsgServiceUnavailable,
		})
		return
	case err != nil:
		h.writeServiceError(w, r, err)
		return
	}

	resp := transactionsResponse{Transactions: make([]transactionJSON, len(rows))}
	for i, row := range rows {
		resp.Transactions[i] = mapTransaction(row)
	}
	writeJSON(w, http.StatusOK, resp)
}

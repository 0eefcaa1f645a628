package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// SessionName — имя cookie сессии StudyOn.
const SessionName = "study_on_session"

// SessionMaxAge — срок жизни cookie сессии (24 часа).
const SessionMaxAge = 24 * 60 * 60

const (
	identityKey   = "identity"
	csrfKeyPrefix = "csrf:"
)

// Виды flash-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// SessionData — идентичность пользователя, сохраняемая в cookie.
type SessionData struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles,omitempty"`
}

// Flash — одноразовое сообщение для следующего запроса.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionStore — подписанная и зашифрованная cookie-сессия.
// Хранит идентичность, flash-сообщения и CSRF-токены.
type SessionStore struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewSessionStore создаёт хранилище сессий.
// Ключи подписи и шифрования выводятся из secret через SHA-256.
// Пустой secret — случайные ключи (сессии не переживают рестарт).
func NewSessionStore(secret string, secure bool, logger *slog.Logger) *SessionStore {
	logger = logger.With(slog.String("component", "session_store"))

	var hashKey, blockKey []byte
	if secret == "" {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		logger.Warn("SO_SESSION_SECRET не задан, ключи сессий сгенерированы случайно")
	} else {
		hashKey = deriveKey("hash:", secret)
		blockKey = deriveKey("block:", secret)
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   SessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(SessionMaxAge)

	return &SessionStore{store: store, logger: logger}
}

func deriveKey(purpose, secret string) []byte {
	sum := sha256.Sum256([]byte(purpose + secret))
	return sum[:]
}

// session возвращает сессию запроса. Повреждённая cookie даёт новую пустую сессию.
func (s *SessionStore) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		s.logger.Debug("Повреждённая cookie сессии, создаётся новая",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr),
		)
	}
	return session
}

// Load возвращает сохранённую идентичность. nil, nil — пользователь не входил.
func (s *SessionStore) Load(r *http.Request) (*SessionData, error) {
	raw, ok := s.session(r).Values[identityKey].(string)
	if !ok || raw == "" {
		return nil, nil
	}

	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: сессия: %v", ErrUnsupportedIdentity, err)
	}
	return &data, nil
}

// SaveIdentity записывает идентичность в cookie.
func (s *SessionStore) SaveIdentity(w http.ResponseWriter, r *http.Request, data SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации сессии: %w", err)
	}
	session := s.session(r)
	session.Values[identityKey] = string(raw)
	return s.save(w, r, session)
}

// ClearIdentity удаляет идентичность, сохраняя flash-сообщения.
func (s *SessionStore) ClearIdentity(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	delete(session.Values, identityKey)
	return s.save(w, r, session)
}

// Destroy удаляет сессию целиком (выход из системы).
func (s *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	session.Values = make(map[any]any)
	session.Options.MaxAge = -1
	return s.save(w, r, session)
}

// AddFlash добавляет flash-сообщение вида kind.
func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) error {
	session := s.session(r)
	session.AddFlash(message, kind)
	return s.save(w, r, session)
}

// Flashes извлекает и удаляет накопленные flash-сообщения.
func (s *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	session := s.session(r)
	var result []Flash
	for _, kind := range []string{FlashSuccess, FlashError} {
		for _, v := range session.Flashes(kind) {
			if msg, ok := v.(string); ok {
				result = append(result, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(result) == 0 {
		return nil, nil
	}
	return result, s.save(w, r, session)
}

// CSRFToken возвращает токен для намерения intention, создавая его при первом обращении.
func (s *SessionStore) CSRFToken(w http.ResponseWriter, r *http.Request, intention string) (string, error) {
	session := s.session(r)
	if token, ok := session.Values[csrfKeyPrefix+intention].(string); ok && token != "" {
		return token, nil
	}

	token := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	session.Values[csrfKeyPrefix+intention] = token
	if err := s.save(w, r, session); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateCSRF сверяет token с выданным для intention.
func (s *SessionStore) ValidateCSRF(r *http.Request, intention, token string) error {
	expected, ok := s.session(r).Values[csrfKeyPrefix+intention].(string)
	if !ok || expected == "" || token == "" {
		return ErrInvalidCSRFToken
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrInvalidCSRFToken
	}
	return nil
}

func (s *SessionStore) save(w http.ResponseWriter, r *http.Request, session *sessions.Session) error {
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

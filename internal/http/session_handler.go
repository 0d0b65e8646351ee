package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

type SessionHandler struct {
	sessions *session.Store
	ttl      time.Duration
}

func NewSessionHandler(sessions *session.Store, ttl time.Duration) *SessionHandler {
	return &SessionHandler{sessions: sessions, ttl: ttl}
}

type SessionResponseDTO struct {
	User    *domain.User   `json:"user"`
	IsAdmin bool           `json:"is_admin"`
	Notice  *domain.Notice `json:"notice,omitempty"`
}

func toSessionResponse(user *domain.User) SessionResponseDTO {
	return SessionResponseDTO{User: user, IsAdmin: user.IsAdmin()}
}

// GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toSessionResponse(session.UserFromContext(r.Context())))
}

// PUT /api/v1/session stores the identity record produced by login or signup.
func (h *SessionHandler) PutSession(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}
	if err := user.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return
	}

	token := getSessionToken(r.Context())
	if token == "" {
		token = session.NewToken()
	}
	if err := h.sessions.Set(r.Context(), token, &user); err != nil {
		if errors.Is(err, domain.ErrInvalidUser) {
			respondError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}
		logger.FromContext(r.Context()).Error("failed to store session", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to store session", domain.ErrorNotice("Login failed, please try again."))
		return
	}

	h.setCookie(w, r, token, int(h.ttl.Seconds()))
	respondJSON(w, http.StatusOK, toSessionResponse(&user))
}

// DELETE /api/v1/session
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), getSessionToken(r.Context())); err != nil {
		logger.FromContext(r.Context()).Error("failed to clear session", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear session", domain.ErrorNotice("Logout failed, please try again."))
		return
	}

	h.setCookie(w, r, "", -1)
	respondJSON(w, http.StatusOK, SessionResponseDTO{Notice: domain.InfoNotice("Logged out")})
}

func (h *SessionHandler) setCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/gate"
)

const (
	// SessionCookie carries the session id issued by /api/login.
	SessionCookie = "surveydash_session"

	// SessionHeader is accepted instead of the cookie by non-browser clients.
	SessionHeader = "X-Surveydash-Session"
)

// sessionHandler handles /api/login, /api/logout and /api/session.
type sessionHandler struct {
	gate   *gate.Gate
	audit  audit.Logger
	secure bool
	ttl    time.Duration
}

type loginRequest struct {
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	GateEnabled   bool   `json:"gate_enabled"`
	SessionID     string `json:"session_id,omitempty"`
}

// sessionID returns the caller's session id from the cookie or the header.
func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(SessionHeader)
}

// Login checks the password and issues a session cookie.
func (h *sessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	ctx := r.Context()
	id, err := h.gate.Login(ctx, req.Password)
	switch {
	case errors.Is(err, gate.ErrDisabled):
		loginAttempts.WithLabelValues("disabled").Inc()
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true})
		return
	case errors.Is(err, gate.ErrBadCredential):
		loginAttempts.WithLabelValues("rejected").Inc()
		log.Warn().Str("remote", r.RemoteAddr).Msg("login rejected")
		h.audit.Record(ctx, audit.NewEntry(audit.OpAuthenticate, audit.StatusDenied).
			WithSession("", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		loginAttempts.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}

	loginAttempts.WithLabelValues("accepted").Inc()
	h.audit.Record(ctx, audit.NewEntry(audit.OpAuthenticate, audit.StatusSuccess).
		WithSession(id, r.RemoteAddr))

	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.ttl > 0 {
		cookie.MaxAge = int(h.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, GateEnabled: true, SessionID: id})
}

// Logout drops the session and clears the cookie.
func (h *sessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := h.gate.Logout(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("logout failed")
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	if id != "" {
		h.audit.Record(r.Context(), audit.NewEntry(audit.OpLogout, audit.StatusSuccess).
			WithSession(id, r.RemoteAddr))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sessionResponse{GateEnabled: h.gate.Enabled()})
}

// Status reports whether the caller's session is authenticated.
func (h *sessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	ok, err := h.gate.IsAuthenticated(r.Context(), sessionID(r))
	if err != nil {
		log.Error().Err(err).Msg("session lookup failed")
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: ok, GateEnabled: h.gate.Enabled()})
}

// requireSession rejects callers without an authenticated session.
func (h *sessionHandler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := h.gate.IsAuthenticated(r.Context(), sessionID(r))
		if err != nil {
			log.Error().Err(err).Msg("session lookup failed")
			writeError(w, http.StatusInternalServerError, "session store unavailable")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "password required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package httpapi

import (
	"net/http"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/services/attendance/adminauth"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientAddress(r), s.clock().UTC()) {
		writeError(w, r, apperrors.New(apperrors.CodeRateLimited, "login rate limit exceeded"))
		return
	}
	if s.auth == nil {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthorized, "admin auth is not configured"))
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := s.auth.Login(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.setAdminCookie(w, token.Value, int(s.auth.TTL().Seconds()))
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setAdminCookie(w, "", -1)
	writeJSON(w, http.StatusOK, statusResponse{Status: "logged_out"})
}

func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (s *Server) setAdminCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminauth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

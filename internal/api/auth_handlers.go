package api

import (
	"net/http"
	"time"

	"github.com/safar/storefront/internal/auth"
)

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		var req auth.RegisterInput
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		if _, err := s.auth.Register(r.Context(), req); err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusCreated, envelope{"message": "Registration successful"})
	}
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		session, err := s.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, r, err)
			return
		}

		http.SetCookie(w, s.sessionCookie(session.Token, session.ExpiresAt))
		respondOK(w, r, http.StatusOK, envelope{
			"message": "Logged in successfully",
			"user":    session.User,
		})
	}
}

func (s *Server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context(), s.sessionToken(r)); err != nil {
			respondError(w, r, err)
			return
		}

		http.SetCookie(w, s.sessionCookie("", time.Unix(0, 0)))
		respondOK(w, r, http.StatusOK, envelope{"message": "Logged out successfully"})
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, r, http.StatusOK, envelope{"user": identityFrom(r.Context())})
	}
}

// sessionCookie builds the session cookie. An empty token clears it.
func (s *Server) sessionCookie(token string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Auth.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(s.auth.TokenTTL().Seconds())
	}
	return c
}

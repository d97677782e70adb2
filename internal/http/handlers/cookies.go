package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/video-hub/internal/http/middleware"
	"github.com/pribylovaa/video-hub/internal/models"
)

// RefreshTokenCookie — имя cookie с refresh-токеном.
const RefreshTokenCookie = "refreshToken"

func (h *Handlers) cookie(name, value string, expires time.Time) *http.Cookie {
	path := h.Cookies.Path
	if path == "" {
		path = "/"
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}

	c.Expires = expires
	return c
}

func (h *Handlers) setSessionCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, pair.Access.Token, pair.Access.ExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, pair.Refresh.Token, pair.Refresh.ExpiresAt))
}

func (h *Handlers) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, "", time.Time{}))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, "", time.Time{}))
}

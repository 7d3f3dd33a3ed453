package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/skyvault/skyvault/config"
)

// CookieHelper manages the httpOnly auth cookie.
type CookieHelper struct {
	cfg config.CookieConfig
}

func NewCookieHelper(cfg config.CookieConfig) *CookieHelper {
	if cfg.Name == "" {
		cfg.Name = "sv_token"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieHelper{cfg: cfg}
}

// SetAuthCookie stores the access token in an httpOnly cookie.
func (h *CookieHelper) SetAuthCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Name,
		Value:    token,
		MaxAge:   int(ttl.Seconds()),
		Path:     h.cfg.Path,
		Domain:   h.cfg.Domain,
		Secure:   h.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie expires the auth cookie.
func (h *CookieHelper) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Name,
		Value:    "",
		MaxAge:   -1,
		Path:     h.cfg.Path,
		Domain:   h.cfg.Domain,
		Secure:   h.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest reads the access token from the auth cookie, falling back
// to an Authorization: Bearer header.
func (h *CookieHelper) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.cfg.Name); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return ""
	}
	return headerParts[1]
}

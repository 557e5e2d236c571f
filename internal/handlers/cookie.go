package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/middleware"
)

const logoutCookieLifetime = 10 * time.Second

// setSessionCookie stores token in an http-only cookie that lives as long as
// the token. Production cookies are cross-site so the mobile shell can use them.
func (h HandlerSet) setSessionCookie(c *gin.Context, token string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.Security.CookieDomain,
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, cookie)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	h.setSessionCookie(c, middleware.LoggedOutToken, logoutCookieLifetime)
}

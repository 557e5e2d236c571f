package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cleanhub/internal/models"
	"cleanhub/internal/security"
	"cleanhub/internal/service"
)

const (
	contextUser     = "current_user"
	contextIdentity = "current_identity"

	// LoggedOutToken is the cookie value written on logout.
	LoggedOutToken = "none"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Auth reads the session cookie, resolves it to a user and attaches the
// user and its identity to the request.
func Auth(cookieName string, auth Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" || token == LoggedOutToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized, no token"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, security.ErrInvalidToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized, invalid token"})
			return
		case errors.Is(err, service.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized, user not found"})
			return
		case errors.Is(err, security.ErrTokenMisconfigured):
			log.Error().Err(err).Msg("token verification misconfigured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_server_error",
				"message": "server authentication is not configured",
			})
			return
		default:
			log.Error().Err(err).Msg("authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_server_error",
				"message": err.Error(),
			})
			return
		}

		c.Set(contextUser, user)
		c.Set(contextIdentity, user.Identity())
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(contextUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(contextIdentity)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

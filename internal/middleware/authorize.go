package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cleanhub/internal/models"
)

// RequireRoles lets the request through only if the authenticated identity
// holds one of roles. It must run after Auth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		if !role.Valid() {
			panic(fmt.Sprintf("RequireRoles: unknown role %q", role))
		}
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
			return
		}

		if _, ok := roleSet[identity.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": fmt.Sprintf("role %s is not allowed to access this resource", identity.Role),
			})
			return
		}

		c.Next()
	}
}

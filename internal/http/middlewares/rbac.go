package middlewares

import (
	"net/http"

	"github.com/crosslove/eventhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the token carries role among its roles.
func (m *AuthMiddleware) RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserIDFromContext(c); !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if !HasRole(c, string(role)) {
			abortJSON(c, http.StatusForbidden, "forbidden", "Insufficient role")
			return
		}
		c.Next()
	}
}

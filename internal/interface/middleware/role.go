package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/policyport/auth-service/internal/domain/entity"
	"github.com/policyport/auth-service/pkg/response"
)

// RoleAllowed reports whether role is in the allowed set.
func RoleAllowed(role entity.Role, allowed []entity.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRoles gates a route to the given roles. It must run after Auth has
// attached the caller's identity; composing it first is a programming error
// and is rejected as unauthorized rather than panicking.
func RequireRoles(allowed ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			response.AbortError(c, http.StatusUnauthorized, "no token provided", nil)
			return
		}
		if !RoleAllowed(u.Role, allowed) {
			response.AbortError(c, http.StatusForbidden, "role '"+u.Role.String()+"' is not allowed to access this resource", nil)
			return
		}
		c.Next()
	}
}

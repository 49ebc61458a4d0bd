package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/policyport/auth-service/internal/domain/entity"
	repo "github.com/policyport/auth-service/internal/domain/repository"
	"github.com/policyport/auth-service/pkg/helpers"
	"github.com/policyport/auth-service/pkg/response"
)

const (
	CtxUserKey   = "authUser"
	CtxUserIDKey = "userID"
)

// Auth validates the bearer token, loads the account behind it and checks it
// is still active before letting the request through. Deactivation therefore
// takes effect on the next request even though tokens are never revoked.
// On success the resolved user is attached to the Gin context.
func Auth(users repo.UserRepository, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "no token provided", nil)
			return
		}

		claims, err := jwt.Parse(token)
		if err != nil {
			if errors.Is(err, helpers.ErrTokenExpired) {
				response.AbortError(c, http.StatusUnauthorized, "token expired, please login again", nil)
				return
			}
			response.AbortError(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		u, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				response.AbortError(c, http.StatusUnauthorized, "user not found", nil)
				return
			}
			// Store trouble is not an authorization verdict.
			response.AbortError(c, http.StatusInternalServerError, "authentication unavailable", nil)
			return
		}
		if !u.IsActive {
			response.AbortError(c, http.StatusUnauthorized, "account is deactivated", nil)
			return
		}

		c.Set(CtxUserKey, u)
		c.Set(CtxUserIDKey, u.ID)
		c.Next()
	}
}

// CurrentUser returns the identity attached by Auth, or nil if Auth did not run.
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/policyport/auth-service/internal/container"
	"github.com/policyport/auth-service/internal/domain/entity"
	handlers "github.com/policyport/auth-service/internal/interface/http"
	"github.com/policyport/auth-service/internal/interface/middleware"
)

// UserModule wires admin-only user routes.
// Protected: GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/users")
	admin.Use(
		middleware.Auth(container.GetUserRepo(), container.GetJWT()),
		middleware.RequireRoles(entity.RoleAdmin),
	)
	{
		// Runs after Auth, so the limit is per admin account rather than per
		// IP. Internal addresses bypass it.
		searchLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP())
		admin.GET("/search", searchLimiter, m.Handler.Search)
	}
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/policyport/auth-service/internal/container"
	handlers "github.com/policyport/auth-service/internal/interface/http"
	"github.com/policyport/auth-service/internal/interface/middleware"
)

// AuthModule wires registration, login and current-user routes.
// Public: POST /api/auth/register, POST /api/auth/login
// Protected: GET /api/auth/me
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	// Login throttles the caller across paths so retrying against other
	// endpoints does not buy extra attempts.
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)

	rg.POST("/auth/register", registerLimiter, m.Handler.Register)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetUserRepo(), container.GetJWT()))
	{
		auth.GET("/auth/me", m.Handler.Me)
	}
}

package router

import (
	userapp "github.com/policyport/auth-service/internal/application"
	"github.com/policyport/auth-service/internal/container"
	pginfra "github.com/policyport/auth-service/internal/infrastructure/postgres"
	handlers "github.com/policyport/auth-service/internal/interface/http"
	"github.com/policyport/auth-service/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup after the container is populated.
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	repo := pginfra.NewUserRepository(container.GetPGPool())
	container.SetUserRepo(repo)

	service := userapp.NewService(
		repo,
		container.GetJWT(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
		container.GetRabbitPub(),
		cfg.MailSendEnabled,
	)

	authHandler := handlers.NewAuthHandler(service, container.GetLogger())
	userHandler := handlers.NewUserHandler(service, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewUserModule(userHandler))
}

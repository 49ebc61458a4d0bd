package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/policyport/auth-service/internal/application"
	"github.com/policyport/auth-service/internal/domain/entity"
	"github.com/policyport/auth-service/internal/interface/middleware"
	"github.com/policyport/auth-service/pkg/response"
	"github.com/policyport/auth-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type addressRequest struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required,zip6"`
}

type registerRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=50"`
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,pwdcomplex"`
	Phone       string         `json:"phone" validate:"required,phone10"`
	DateOfBirth string         `json:"dateOfBirth" validate:"required,adult"`
	Address     addressRequest `json:"address"`
	Role        string         `json:"role" validate:"omitempty,oneof=customer agent admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// normalize trims and case-folds before validation so that rules apply to
// what will actually be stored.
func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	req.normalize()
	if errs := validation.Validate(&req); errs != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", errs)
		return
	}
	// Validated by the adult rule already.
	dob, err := validation.ParseDate(req.DateOfBirth)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", map[string]string{"dateOfBirth": "must be a valid date"})
		return
	}

	u, token, err := h.Svc.Register(c.Request.Context(), userapp.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		DateOfBirth: dob,
		Address: entity.Address{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			ZipCode: req.Address.ZipCode,
		},
		Role: entity.Role(req.Role),
	})
	if err != nil {
		if errors.Is(err, userapp.ErrEmailTaken) {
			response.Error(c, http.StatusBadRequest, "user already exists", nil)
			return
		}
		if errors.Is(err, userapp.ErrInvalidRole) {
			response.Error(c, http.StatusBadRequest, "validation failed", map[string]string{"role": "must be one of: customer, agent, admin"})
			return
		}
		h.Logger.WithError(err).WithField("email", req.Email).Error("registration failed")
		response.Error(c, http.StatusInternalServerError, "something went wrong", nil)
		return
	}

	response.Auth(c, http.StatusCreated, token, u.Summary())
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validation.Validate(&req); errs != nil {
		response.Error(c, http.StatusBadRequest, "validation failed", errs)
		return
	}

	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userapp.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, userapp.ErrAccountDeactivated):
			response.Error(c, http.StatusUnauthorized, "account is deactivated", nil)
		default:
			h.Logger.WithError(err).WithField("email", req.Email).Error("login failed")
			response.Error(c, http.StatusInternalServerError, "something went wrong", nil)
		}
		return
	}

	response.Auth(c, http.StatusOK, token, u.Summary())
}

// Me handles GET /api/auth/me. Auth middleware has already resolved the
// caller, but the profile is re-read so a record deleted out-of-band
// surfaces as 404.
func (h *AuthHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, userapp.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("user_id", uid).Error("profile lookup failed")
		response.Error(c, http.StatusInternalServerError, "something went wrong", nil)
		return
	}
	response.User(c, http.StatusOK, u.Profile())
}

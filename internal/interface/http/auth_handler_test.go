package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/policyport/auth-service/internal/application"
	"github.com/policyport/auth-service/internal/domain/entity"
	repo "github.com/policyport/auth-service/internal/domain/repository"
	"github.com/policyport/auth-service/internal/interface/middleware"
	"github.com/policyport/auth-service/pkg/helpers"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*entity.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*entity.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// The store is unique on lower(email).
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repo.ErrDuplicateEmail
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) setActive(email string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.IsActive = active
		}
	}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    map[string]any    `json:"user"`
	Data    map[string]any    `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func newTestServer() (*gin.Engine, *fakeUserRepo, *helpers.JWTManager) {
	gin.SetMode(gin.TestMode)

	store := newFakeUserRepo()
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := userapp.NewService(store, jwt, logger, nil, "", nil, false)
	authHandler := NewAuthHandler(svc, logger)
	userHandler := NewUserHandler(svc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.Auth(store, jwt))
	protected.GET("/auth/me", authHandler.Me)

	admin := api.Group("/users")
	admin.Use(middleware.Auth(store, jwt), middleware.RequireRoles(entity.RoleAdmin))
	admin.GET("/search", userHandler.Search)

	return r, store, jwt
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, env
}

func registerBody(role string) map[string]any {
	b := map[string]any{
		"name":        "Jane Doe",
		"email":       "JANE@EX.com",
		"password":    "Abcdef1",
		"phone":       "9876543210",
		"dateOfBirth": "1990-01-01",
		"address": map[string]any{
			"street":  "1 Rd",
			"city":    "C",
			"state":   "S",
			"zipCode": "123456",
		},
	}
	if role != "" {
		b["role"] = role
	}
	return b
}

func TestRegister(t *testing.T) {
	r, store, _ := newTestServer()

	w, env := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !env.Success || env.Token == "" {
		t.Fatalf("expected success with token, got %+v", env)
	}
	if env.User["email"] != "jane@ex.com" {
		t.Fatalf("expected normalized email, got %v", env.User["email"])
	}
	if env.User["role"] != "customer" {
		t.Fatalf("expected default role customer, got %v", env.User["role"])
	}
	if _, ok := env.User["password"]; ok {
		t.Fatal("response must never contain the password digest")
	}

	// Stored record carries the normalized email and a digest, not the plaintext.
	u, err := store.GetByEmail(context.Background(), "jane@ex.com")
	if err != nil {
		t.Fatalf("stored user not found: %v", err)
	}
	if u.Password == "Abcdef1" || !helpers.CompareHashAndPassword(u.Password, "Abcdef1") {
		t.Fatal("stored password must be a verifying bcrypt digest")
	}
}

func TestRegister_ValidationListsAllFields(t *testing.T) {
	r, _, _ := newTestServer()

	w, env := doRequest(t, r, http.MethodPost, "/api/auth/register", map[string]any{}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	for _, field := range []string{"name", "email", "password", "phone", "dateOfBirth", "street", "city", "state", "zipCode"} {
		if _, ok := env.Errors[field]; !ok {
			t.Fatalf("expected error for %q, got %v", field, env.Errors)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r, _, _ := newTestServer()

	if w, _ := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), ""); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}
	// Same address with different casing hits the same stored record.
	body := registerBody("")
	body["email"] = "jane@EX.COM"
	w, env := doRequest(t, r, http.MethodPost, "/api/auth/register", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Message != "user already exists" {
		t.Fatalf("expected conflict message, got %q", env.Message)
	}
}

func TestLogin(t *testing.T) {
	r, store, _ := newTestServer()
	doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), "")

	t.Run("success", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@ex.com", "password": "Abcdef1"}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if env.Token == "" || env.User["email"] != "jane@ex.com" {
			t.Fatalf("expected token and summary, got %+v", env)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@ex.com", "password": "Wrong1pw"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if env.Message != "invalid email or password" {
			t.Fatalf("unexpected message %q", env.Message)
		}
	})

	t.Run("unknown email gets the same message", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]any{"email": "nobody@ex.com", "password": "Abcdef1"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if env.Message != "invalid email or password" {
			t.Fatalf("unexpected message %q", env.Message)
		}
	})

	t.Run("deactivated account", func(t *testing.T) {
		store.setActive("jane@ex.com", false)
		defer store.setActive("jane@ex.com", true)
		w, env := doRequest(t, r, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@ex.com", "password": "Abcdef1"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if env.Message != "account is deactivated" {
			t.Fatalf("unexpected message %q", env.Message)
		}
	})
}

func TestMe(t *testing.T) {
	r, _, _ := newTestServer()
	_, reg := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), "")

	w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, reg.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, field := range []string{"id", "name", "email", "phone", "dateOfBirth", "address", "role", "isActive", "createdAt"} {
		if _, ok := env.User[field]; !ok {
			t.Fatalf("expected profile field %q, got %v", field, env.User)
		}
	}
	if env.User["dateOfBirth"] != "1990-01-01" {
		t.Fatalf("unexpected dateOfBirth %v", env.User["dateOfBirth"])
	}
	if _, ok := env.User["password"]; ok {
		t.Fatal("profile must never contain the password digest")
	}
	if strings.Contains(w.Body.String(), "$2a$") {
		t.Fatal("bcrypt digest leaked into the response body")
	}
}

func TestAuthMiddleware(t *testing.T) {
	r, store, jwt := newTestServer()
	_, reg := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), "")

	t.Run("no token", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, "")
		if w.Code != http.StatusUnauthorized || env.Message != "no token provided" {
			t.Fatalf("got %d %q", w.Code, env.Message)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, "not-a-token")
		if w.Code != http.StatusUnauthorized || env.Message != "invalid token" {
			t.Fatalf("got %d %q", w.Code, env.Message)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := helpers.NewJWTManager("test-secret", -time.Minute)
		tok, _, err := expired.Generate("user-1")
		if err != nil {
			t.Fatalf("generate expired token: %v", err)
		}
		w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, tok)
		if w.Code != http.StatusUnauthorized || env.Message != "token expired, please login again" {
			t.Fatalf("got %d %q", w.Code, env.Message)
		}
	})

	t.Run("vanished user", func(t *testing.T) {
		tok, _, err := jwt.Generate("user-gone")
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, tok)
		if w.Code != http.StatusUnauthorized || env.Message != "user not found" {
			t.Fatalf("got %d %q", w.Code, env.Message)
		}
	})

	t.Run("deactivation invalidates previously issued tokens", func(t *testing.T) {
		store.setActive("jane@ex.com", false)
		defer store.setActive("jane@ex.com", true)
		w, env := doRequest(t, r, http.MethodGet, "/api/auth/me", nil, reg.Token)
		if w.Code != http.StatusUnauthorized || env.Message != "account is deactivated" {
			t.Fatalf("got %d %q", w.Code, env.Message)
		}
	})
}

func TestRequireRoles(t *testing.T) {
	r, _, _ := newTestServer()

	_, customer := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody(""), "")

	adminBody := registerBody("admin")
	adminBody["email"] = "root@ex.com"
	_, admin := doRequest(t, r, http.MethodPost, "/api/auth/register", adminBody, "")

	t.Run("customer is rejected", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodGet, "/api/users/search?q=jane", nil, customer.Token)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
		if !strings.Contains(env.Message, "customer") {
			t.Fatalf("message must name the offending role, got %q", env.Message)
		}
	})

	t.Run("admin passes", func(t *testing.T) {
		w, env := doRequest(t, r, http.MethodGet, "/api/users/search?q=jane", nil, admin.Token)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !env.Success {
			t.Fatalf("expected success envelope, got %+v", env)
		}
	})
}

func TestRegister_InvalidRole(t *testing.T) {
	r, _, _ := newTestServer()
	w, env := doRequest(t, r, http.MethodPost, "/api/auth/register", registerBody("superuser"), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if _, ok := env.Errors["role"]; !ok {
		t.Fatalf("expected role error, got %v", env.Errors)
	}
}

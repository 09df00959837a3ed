package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/goframe/internal/router"
	"github.com/aras-services/goframe/internal/security"
)

func newAuthTestServer(t *testing.T, repo *UserRepository, tokens *security.TokenService, subject string) *httptest.Server {
	t.Helper()
	securityCheck := func(req *http.Request) (router.Decision, error) {
		if subject == "" {
			return router.Decision{Allowed: true}, nil
		}
		return router.Decision{Allowed: true, Values: map[string]any{"subject": subject}}, nil
	}
	r := router.New(zap.NewNop(), securityCheck)
	controller := NewAuthController(repo, tokens)
	r.MustRegister(http.MethodPost, "/api/v1/auth/register", "AuthController.register", controller.Register)
	r.MustRegister(http.MethodPost, "/api/v1/auth/login", "AuthController.login", controller.Login)
	r.MustRegister(http.MethodGet, "/api/v1/auth/me", "AuthController.me", controller.Me)
	srv := httptest.NewServer(r.Build(cors.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthControllerRegisterThenLogin(t *testing.T) {
	repo, _ := wireUserRepo(t)
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv := newAuthTestServer(t, repo, tokens, "")

	registerBody, _ := json.Marshal(map[string]string{
		"email":     "grace@example.com",
		"password":  "supersecret",
		"firstName": "Grace",
		"lastName":  "Hopper",
	})
	resp, err := http.Post(srv.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(registerBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerEnvelope struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registerEnvelope))
	assert.NotEmpty(t, registerEnvelope.Data.Token)
	assert.NotEmpty(t, registerEnvelope.Data.User.ID)

	loginBody, _ := json.Marshal(map[string]string{
		"email":    "grace@example.com",
		"password": "supersecret",
	})
	loginResp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	defer loginResp.Body.Close()
	assert.Equal(t, http.StatusOK, loginResp.StatusCode)

	badLoginBody, _ := json.Marshal(map[string]string{
		"email":    "grace@example.com",
		"password": "wrong-password",
	})
	badResp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(badLoginBody))
	require.NoError(t, err)
	defer badResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
}

func TestAuthControllerLoginUnknownEmailIsUnauthorized(t *testing.T) {
	repo, _ := wireUserRepo(t)
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv := newAuthTestServer(t, repo, tokens, "")

	body, _ := json.Marshal(map[string]string{"email": "nobody@example.com", "password": "whatever1"})
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthControllerMeReturnsAuthenticatedUser(t *testing.T) {
	repo, _ := wireUserRepo(t)
	tokens := security.NewTokenService("test-secret", time.Hour)

	hash, err := security.HashPassword("supersecret")
	require.NoError(t, err)
	user := &User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: hash, Active: true}
	require.NoError(t, repo.Save(context.Background(), user))

	srv := newAuthTestServer(t, repo, tokens, user.ID.String())

	resp, err := http.Get(srv.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Email string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "ada@example.com", envelope.Data.Email)
}

func TestAuthControllerMeWithoutSubjectIsUnauthorized(t *testing.T) {
	repo, _ := wireUserRepo(t)
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv := newAuthTestServer(t, repo, tokens, "")

	resp, err := http.Get(srv.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

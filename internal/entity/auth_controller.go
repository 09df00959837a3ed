package entity

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aras-services/goframe/internal/router"
	"github.com/aras-services/goframe/internal/security"
)

// AuthController implements the framework's three fixed auth endpoints
// (spec.md §6: register/login/me). Grounded on the teacher's AuthHandler
// (internal/delivery/http/auth_handler.go), trimmed to the three routes
// spec.md names explicitly — the teacher's refresh/logout/verify-email/
// forgot-password/reset-password/change-password/introspect endpoints sit
// outside this contract and are left to an application built on top of
// this framework to add, not part of the generated surface itself.
type AuthController struct {
	repo   *UserRepository
	tokens *security.TokenService
}

// NewAuthController is the DI constructor.
func NewAuthController(repo *UserRepository, tokens *security.TokenService) *AuthController {
	return &AuthController{repo: repo, tokens: tokens}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a new user with a hashed password and returns it
// alongside an issued access token, mirroring the teacher's
// register-then-login response shape.
func (c *AuthController) Register(req *router.Request) (router.Result, error) {
	var body registerRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	if err := router.ValidateStruct(body); err != nil {
		return router.Result{}, err
	}

	hash, err := security.HashPassword(body.Password)
	if err != nil {
		return router.Result{}, err
	}

	user := &User{
		ID:           uuid.New(),
		Email:        body.Email,
		PasswordHash: hash,
		FirstName:    body.FirstName,
		LastName:     body.LastName,
		Active:       true,
	}
	if err := c.repo.Save(req.Raw.Context(), user); err != nil {
		return router.Result{}, err
	}

	token, err := c.tokens.Issue(user.ID.String(), user.Email, nil)
	if err != nil {
		return router.Result{}, err
	}

	return router.Created(map[string]any{"user": user, "token": token}), nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues an access token; spec.md §7's
// error taxonomy treats a bad credential as unauthenticated, not a
// validation error, so a lookup miss and a bad password both return 401.
func (c *AuthController) Login(req *router.Request) (router.Result, error) {
	var body loginRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return router.Result{}, &router.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	if err := router.ValidateStruct(body); err != nil {
		return router.Result{}, err
	}

	user, err := c.repo.FindByEmail(req.Raw.Context(), body.Email)
	if err != nil {
		return router.Result{}, err
	}
	if user == nil {
		return router.Status(401, nil).WithMessage("invalid credentials"), nil
	}
	if err := security.VerifyPassword(user.PasswordHash, body.Password); err != nil {
		return router.Status(401, nil).WithMessage("invalid credentials"), nil
	}

	token, err := c.tokens.Issue(user.ID.String(), user.Email, nil)
	if err != nil {
		return router.Result{}, err
	}

	return router.OK(map[string]any{"user": user, "token": token}), nil
}

// Me returns the authenticated caller's profile, reading the validated
// claims the security interceptor already attached when it allowed the
// request through.
func (c *AuthController) Me(req *router.Request) (router.Result, error) {
	subject, _ := req.Value("subject").(string)
	if subject == "" {
		return router.Status(401, nil).WithMessage("unauthenticated"), nil
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return router.Status(401, nil).WithMessage("unauthenticated"), nil
	}
	user, err := c.repo.FindByID(req.Raw.Context(), id)
	if err != nil {
		return router.Result{}, err
	}
	if user == nil {
		return router.Status(404, nil).WithMessage("not found"), nil
	}
	return router.OK(user), nil
}

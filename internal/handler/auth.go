package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/middleware"
	"github.com/iliyamo/whosaidit/internal/repository"
	"github.com/iliyamo/whosaidit/internal/security"
	"github.com/iliyamo/whosaidit/internal/service"
)

// AuthService is implemented by service.AuthService.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (service.AuthResult, error)
	Authenticate(ctx context.Context, username, password string) (service.AuthResult, error)
	Refresh(ctx context.Context, rawRefresh string) (service.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ExecutePasswordReset(ctx context.Context, userID uint64, newPassword string) error
	UpdatePassword(ctx context.Context, userID uint64, current, newPassword string) error
	UpdateEmail(ctx context.Context, userID uint64, password, newEmail string) error
	QuizAccessToken(ctx context.Context, quizID uint64, regenerate bool) (service.QuizShare, error)
	ValidateQuizURLToken(ctx context.Context, quizID uint64, urlToken string) (service.QuizShare, error)
}

// AuthHandler serves /api/auth plus the credential endpoints that need a
// principal: password reset completion, password and email changes and
// quiz link generation.
type AuthHandler struct {
	Svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler { return &AuthHandler{Svc: svc} }

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type emailReq struct {
	Email string `json:"email"`
}

type newPasswordReq struct {
	NewPassword string `json:"newPassword"`
}

type updatePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateEmailReq struct {
	Password string `json:"password"`
	NewEmail string `json:"newEmail"`
}

type urlTokenReq struct {
	URLToken string `json:"urlToken"`
}

const minPasswordLen = 8

// Register: POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "username and a valid email are required")
	}
	if len(req.Password) < minPasswordLen {
		return badRequest(c, "password must be at least 8 characters")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username_taken"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email_in_use"})
	case err != nil:
		return internalError(c, "register", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Authenticate: POST /api/auth/authenticate
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Svc.Authenticate(ctx, strings.TrimSpace(req.Username), req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return internalError(c, "authenticate", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: POST /api/auth/refresh with the refresh token as bearer.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := middleware.BearerToken(c)
	if raw == "" {
		return badRequest(c, "missing bearer refresh token")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Svc.Refresh(ctx, raw)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, security.ErrRefreshInvalidated):
		// the client must log in again; retrying will not help
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh_invalidated"})
	case errors.Is(err, security.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token_expired"})
	case errors.Is(err, security.ErrTokenInvalid), errors.Is(err, security.ErrPrincipalNotFound):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
	default:
		return internalError(c, "refresh", err)
	}
}

// RequestPasswordReset: POST /api/auth/request-password-reset
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return badRequest(c, "email required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Svc.RequestPasswordReset(ctx, email); err != nil {
		return storeError(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset email sent"})
}

// ExecutePasswordReset: PATCH /api/password-reset/:userId
func (h *AuthHandler) ExecutePasswordReset(c echo.Context) error {
	userID, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req newPasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.NewPassword) < minPasswordLen {
		return badRequest(c, "password must be at least 8 characters")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Svc.ExecutePasswordReset(ctx, userID, req.NewPassword); err != nil {
		return storeError(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset successfully"})
}

// UpdatePassword: PATCH /api/users/:id/password
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.NewPassword) < minPasswordLen {
		return badRequest(c, "password must be at least 8 characters")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err := h.Svc.UpdatePassword(ctx, userID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "current password is incorrect"})
	}
	if err != nil {
		return storeError(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// UpdateEmail: PATCH /api/users/:id/email
func (h *AuthHandler) UpdateEmail(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateEmailReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := strings.ToLower(strings.TrimSpace(req.NewEmail))
	if !strings.Contains(email, "@") {
		return badRequest(c, "valid email required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err := h.Svc.UpdateEmail(ctx, userID, req.Password, email)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "password is incorrect"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email_in_use"})
	case err != nil:
		return storeError(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email updated", "email": email})
}

// GenerateQuizToken: POST /api/quizzes/:id/generate-token[?regenerate=true]
func (h *AuthHandler) GenerateQuizToken(c echo.Context) error {
	quizID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	regenerate := c.QueryParam("regenerate") == "true"

	ctx, cancel := dbCtx(c)
	defer cancel()

	share, err := h.Svc.QuizAccessToken(ctx, quizID, regenerate)
	if err != nil {
		return storeError(c, "quiz", err)
	}
	return c.JSON(http.StatusOK, share)
}

// ValidateQuizURLToken: POST /api/auth/quizzes/:id/validate-url-token
func (h *AuthHandler) ValidateQuizURLToken(c echo.Context) error {
	quizID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	var req urlTokenReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	share, err := h.Svc.ValidateQuizURLToken(ctx, quizID, strings.TrimSpace(req.URLToken))
	if errors.Is(err, service.ErrInvalidURLToken) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid url token"})
	}
	if err != nil {
		return internalError(c, "validate url token", err)
	}
	return c.JSON(http.StatusOK, share)
}

package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/linkauth/server/internal/api/http/middleware"
	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
)

// AuthService defines magic link issuance and verification operations.
type AuthService interface {
	Signup(ctx context.Context, email, displayName string) (model.Account, error)
	Login(ctx context.Context, email string) (model.Account, error)
	Resend(ctx context.Context, email string) (model.Account, error)
	Verify(ctx context.Context, token string) (model.Account, string, error)
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService   AuthService
	secureCookies bool
	logger        *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, secureCookies bool, logger *logger.Logger) *Auth {
	return &Auth{
		authService:   authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type issueRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type issueResponse struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func newAccountResponse(account model.Account) accountResponse {
	return accountResponse{
		ID:        account.ID.String(),
		Email:     account.Email,
		Name:      account.DisplayName,
		Verified:  account.Verified,
		CreatedAt: account.CreatedAt,
	}
}

// Signup creates or refreshes an unverified account and emails a magic link.
func (h *Auth) Signup(c fiber.Ctx) error {
	var req issueRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	account, err := h.authService.Signup(c.Context(), req.Email, req.Name)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(issueResponse{
		Email: account.Email,
		Name:  account.DisplayName,
	})
}

// Login emails a fresh magic link to a verified account.
func (h *Auth) Login(c fiber.Ctx) error {
	var req issueRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	account, err := h.authService.Login(c.Context(), req.Email)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(issueResponse{
		Email: account.Email,
		Name:  account.DisplayName,
	})
}

// Resend refreshes the verification link of an unverified account.
func (h *Auth) Resend(c fiber.Ctx) error {
	var req issueRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	account, err := h.authService.Resend(c.Context(), req.Email)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(issueResponse{
		Email: account.Email,
		Name:  account.DisplayName,
	})
}

// Verify consumes a magic link token and establishes a session.
func (h *Auth) Verify(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing token",
		})
	}

	account, credential, err := h.authService.Verify(c.Context(), token)
	if err != nil {
		return h.handleError(c, err)
	}

	h.setSessionCookie(c, credential)

	return c.Status(fiber.StatusOK).JSON(newAccountResponse(account))
}

// Me returns the account the authenticate middleware resolved.
func (h *Auth) Me(c fiber.Ctx) error {
	account, ok := middleware.AccountFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": model.ErrUnauthenticated.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(newAccountResponse(account))
}

// Logout clears the session cookie. Sessions are stateless server side, so
// there is nothing else to revoke.
func (h *Auth) Logout(c fiber.Ctx) error {
	h.clearSessionCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "signed out",
	})
}

const sessionCookieTTL = 7 * 24 * time.Hour

func (h *Auth) setSessionCookie(c fiber.Ctx, credential string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    credential,
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		Secure:   h.secureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *Auth) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		Secure:   h.secureCookies,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

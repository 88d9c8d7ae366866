package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
)

// SessionCookie is the cookie the session credential travels in. It is set
// HttpOnly and SameSite so page script never sees it and cross-site requests
// do not carry it.
const SessionCookie = "linkauth_session"

const accountLocal = "account"

// SessionReader resolves a session credential to the current account record.
type SessionReader interface {
	ReadSession(ctx context.Context, credential string) (model.Account, error)
}

// Authenticate validates session credentials and injects the account into
// request locals.
type Authenticate struct {
	sessions SessionReader
	logger   *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(sessions SessionReader, logger *logger.Logger) *Authenticate {
	return &Authenticate{sessions: sessions, logger: logger}
}

// Handle extracts the credential, validates it and stores the account for
// downstream handlers. Missing, malformed and expired credentials all
// produce the same unauthenticated response.
func (m *Authenticate) Handle(c fiber.Ctx) error {
	credential := ExtractCredential(c)
	if credential == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": model.ErrUnauthenticated.Error(),
		})
	}

	account, err := m.sessions.ReadSession(c.Context(), credential)
	if err != nil {
		m.logger.Debug("Authenticate middleware: session rejected",
			"error", err.Error())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": model.ErrUnauthenticated.Error(),
		})
	}

	c.Locals(accountLocal, account)

	return c.Next()
}

// ExtractCredential reads the session credential from the Authorization
// header (Bearer) or falls back to the session cookie.
func ExtractCredential(c fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return c.Cookies(SessionCookie)
}

// AccountFromCtx returns the account stored by Handle.
func AccountFromCtx(c fiber.Ctx) (model.Account, bool) {
	account, ok := c.Locals(accountLocal).(model.Account)
	return account, ok
}

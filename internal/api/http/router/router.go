package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/linkauth/server/internal/api/http/handler"
	"github.com/linkauth/server/internal/api/http/middleware"
	"github.com/linkauth/server/internal/logger"
)

// Router wires the authentication endpoints and middleware into a fiber app.
type Router struct {
	authService   handler.AuthService
	sessionReader middleware.SessionReader
	secureCookies bool
	logger        *logger.Logger
}

// New creates a new Router instance.
func New(
	authService handler.AuthService,
	sessionReader middleware.SessionReader,
	secureCookies bool,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:   authService,
		sessionReader: sessionReader,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Register builds the fiber app with all routes and middleware.
func (r *Router) Register() *fiber.App {
	app := fiber.New()

	logging := middleware.NewLogging(r.logger)
	app.Use(logging.Handle)

	h := handler.NewAuth(r.authService, r.secureCookies, r.logger)
	authenticate := middleware.NewAuthenticate(r.sessionReader, r.logger)

	auth := app.Group("/api/auth")
	auth.Post("/signup", h.Signup)
	auth.Post("/login", h.Login)
	auth.Post("/resend", h.Resend)
	auth.Get("/verify", h.Verify)
	// Route handlers run in registration order; the guard goes first.
	auth.Get("/me", authenticate.Handle, h.Me)
	auth.Post("/logout", h.Logout)

	return app
}

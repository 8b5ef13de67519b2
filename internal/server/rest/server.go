// Package rest is the HTTP transport. It binds JSON requests to the
// credential manager, extracts bearer tokens and maps error kinds to status
// codes.
package rest

import (
	"context"
	_ "embed"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/dmitrijs2005/userkeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 5 * time.Second

//go:embed openapi.json
var openAPIDocument []byte

// UserService is the part of services.UserService the transport calls.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	ToggleStatus(ctx context.Context, caller *auth.Identity, id int64) (*services.StatusResult, error)
	GetUser(ctx context.Context, caller *auth.Identity, id int64) (*models.Profile, error)
	ListUsers(ctx context.Context, caller *auth.Identity) ([]models.Summary, error)
}

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

type Server struct {
	address string
	app     *fiber.App
	users   UserService
	tokens  TokenVerifier
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, users UserService, tokens TokenVerifier) *Server {
	s := &Server{
		address: address,
		users:   users,
		tokens:  tokens,
		logger:  l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "userkeeper",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Use(s.requestID, s.accessLog)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/api-docs/openapi.json", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		return c.Send(openAPIDocument)
	})

	api := s.app.Group("/api/user")
	api.Post("/register", s.register)
	api.Post("/login", s.login)
	api.Get("/", s.requireAuth, s.listUsers)
	api.Get("/:id", s.requireAuth, s.getUser)
	api.Patch("/:id/block", s.requireAuth, s.toggleStatus)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return s.app.Listen(s.address)
}

package rest

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDLocal = "request_id"

// requireAuth rejects the request unless it carries a valid bearer token.
// Every failure looks the same to the client.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(common.AuthorizationHeaderName))
	if !ok {
		return common.ErrAuthenticationRequired
	}

	ctx := c.UserContext()
	id, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return common.ErrAuthenticationRequired
	}

	c.SetUserContext(auth.WithIdentity(ctx, id))
	return c.Next()
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDLocal, id)
	c.Set(common.RequestIDHeaderName, id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()
	if err != nil {
		// render now so the logged status is the one the client gets
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info(c.UserContext(), "http request",
		"request_id", c.Locals(requestIDLocal),
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
	)
	return nil
}

// statusFor maps an error kind to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidationFailed):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrDuplicateEmail):
		return fiber.StatusConflict, common.ErrDuplicateEmail.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrAuthenticationRequired):
		return fiber.StatusUnauthorized, common.ErrAuthenticationRequired.Error()
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden, common.ErrForbidden.Error()
	case errors.Is(err, common.ErrNotFound):
		return fiber.StatusNotFound, common.ErrNotFound.Error()
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	return fiber.StatusInternalServerError, common.ErrInternal.Error()
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code, msg := statusFor(err)
	if code == fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "request_id", c.Locals(requestIDLocal), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

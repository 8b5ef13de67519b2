package rest

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/dmitrijs2005/userkeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return fmt.Errorf("%w: malformed body", common.ErrValidationFailed)
	}

	res, err := s.users.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fmt.Errorf("%w: malformed body", common.ErrValidationFailed)
	}

	res, err := s.users.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()

	list, err := s.users.ListUsers(ctx, auth.IdentityFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": list})
}

func (s *Server) getUser(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	p, err := s.users.GetUser(ctx, auth.IdentityFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": p})
}

func (s *Server) toggleStatus(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	res, err := s.users.ToggleStatus(ctx, auth.IdentityFromContext(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", common.ErrValidationFailed)
	}
	return id, nil
}

package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/session"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/usercontext"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthController issues and revokes credentials.
type AuthController struct {
	resolver *identity.Resolver
	users    repository.UserRepository
	log      *zap.Logger
}

func NewAuthController(resolver *identity.Resolver, users repository.UserRepository, log *zap.Logger) *AuthController {
	return &AuthController{resolver: resolver, users: users, log: log}
}

// HandleLogin verifies email and password and returns a signed credential.
// The credential is also stored in the session for browser clients.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var in LoginInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}

	// notice: do not reveal whether the email exists
	invalid := apperror.New(apperror.KindUnauthenticated, "invalid email or password")

	user, err := ac.users.GetByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, apperror.ErrNotFound) {
		return writeError(c, invalid)
	}
	if err != nil {
		ac.log.Error("login lookup failed", zap.Error(err))
		return writeError(c, err)
	}
	if !user.CheckPassword(in.Password) {
		return writeError(c, invalid)
	}

	token, err := ac.resolver.Issue(user)
	if err != nil {
		ac.log.Error("failed to issue credential", zap.Uint("user_id", user.ID), zap.Error(err))
		return writeError(c, err)
	}
	if err := session.SetSessionValue(c, usercontext.SessionAuthToken, token); err != nil {
		ac.log.Warn("failed to store credential in session", zap.Error(err))
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{Token: token, User: user})
}

// HandleLogout drops the session. Bearer credentials simply expire.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		ac.log.Warn("failed to destroy session", zap.Error(err))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

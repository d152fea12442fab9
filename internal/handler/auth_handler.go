package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/logger"
)

// AuthHandler handles ForwardAuth verification for the API gateway
type AuthHandler struct {
	resolver auth.IdentityResolver
	log      zerolog.Logger
}

// NewAuthHandler creates a new auth handler for ForwardAuth verification
func NewAuthHandler(resolver auth.IdentityResolver) *AuthHandler {
	return &AuthHandler{
		resolver: resolver,
		log:      logger.WithComponent("auth"),
	}
}

// Verify handles GET /auth/verify, called by the gateway's ForwardAuth.
// Returns 200 with X-User-* headers on success, 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	user, err := h.resolver.CurrentUser(c.UserContext(), auth.CredentialsFromCtx(c))
	if err != nil {
		h.log.Warn().Err(err).Msg("identity resolution failed")
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	if user == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set(auth.HeaderUserID, user.ID)
	c.Set(auth.HeaderUserEmail, user.Email)
	if user.Name != "" {
		c.Set(auth.HeaderUserName, user.Name)
	}
	return c.SendStatus(fiber.StatusOK)
}

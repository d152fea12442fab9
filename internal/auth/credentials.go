package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Gateway identity headers set by ForwardAuth
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// Credentials is what a request carries to prove who the caller is
type Credentials struct {
	// Authorization is the raw Authorization header.
	Authorization string
	// BearerToken is the token from a well-formed "Bearer <token>" header.
	BearerToken string

	GatewayUserID    string
	GatewayUserEmail string
	GatewayUserName  string
}

// CredentialsFromCtx extracts credentials from the request headers
func CredentialsFromCtx(c *fiber.Ctx) Credentials {
	authHeader := c.Get(fiber.HeaderAuthorization)
	return Credentials{
		Authorization:    authHeader,
		BearerToken:      bearerToken(authHeader),
		GatewayUserID:    c.Get(HeaderUserID),
		GatewayUserEmail: c.Get(HeaderUserEmail),
		GatewayUserName:  c.Get(HeaderUserName),
	}
}

func bearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

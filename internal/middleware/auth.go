package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/nikitakofman/chinea-dataservice/internal/services"
	"github.com/nikitakofman/chinea-dataservice/internal/types"
)

// AuthUser validates that the request carries a user session and injects the
// resolved actor into the request context for the service layer.
func AuthUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"user"}, "data.authorization.user")
	}
}

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{"admin"}, "data.authorization.admin")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, roles []string, errorType string) error {
	if !services.IsAuthorizerInitialized() {
		return &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: "Authorization service unavailable",
			Type:    errorType,
		}
	}

	// Get session cookie
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	// Validate session
	actor, err := services.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
		}
	}

	// Make the actor visible to handlers and to the service layer
	c.Locals("actor", actor)
	c.SetUserContext(services.WithActor(c.UserContext(), actor))

	return c.Next()
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dca-case-service/internal/domain"
	apperrors "github.com/spec-kit/dca-case-service/pkg/util"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireFedEx restricts a route to the case-owning organization.
func RequireFedEx() fiber.Handler {
	return RequireRole(domain.RoleFedExAdmin, domain.RoleFedExAgent)
}

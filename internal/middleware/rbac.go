package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/noah-isme/gradingstudents-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := lo.SliceToMap(roles, func(role string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(role)), struct{}{}
	})
	delete(allowed, "")

	return func(c *fiber.Ctx) error {
		role := strings.ToLower(strings.TrimSpace(cast.ToString(c.Locals("user_role"))))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "grading requires an admin or teacher role")
		}
		return c.Next()
	}
}

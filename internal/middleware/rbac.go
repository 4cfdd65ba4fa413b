package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/globalpath-api/internal/lifecycle"
	"github.com/noah-isme/globalpath-api/internal/utils"
)

// RequireRole guards a route group by the role claim set by JWTProtected. A request without any role
// is unauthenticated (401); a role outside roles is forbidden (403) and the response lists the roles
// the surface accepts.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	accepted := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized == "" {
			continue
		}
		if _, seen := allowed[normalized]; !seen {
			accepted = append(accepted, normalized)
		}
		allowed[normalized] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if role == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[role]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", map[string]interface{}{
				"role":     role,
				"accepted": accepted,
			})
		}
		return c.Next()
	}
}

// RequireReviewer guards the reviewer surface: counselors drive the pipeline and admins may step in.
func RequireReviewer() fiber.Handler {
	return RequireRole(lifecycle.RoleReviewer, lifecycle.RoleAdmin)
}

// RequireStudent guards the applicant surface.
func RequireStudent() fiber.Handler {
	return RequireRole(lifecycle.RoleStudent)
}

// RequireAdmin guards catalog maintenance and the audit feed.
func RequireAdmin() fiber.Handler {
	return RequireRole(lifecycle.RoleAdmin)
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}

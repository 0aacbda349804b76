package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/dfalbuq/cardapio-api/models"
	"github.com/dfalbuq/cardapio-api/utils"
)

// Allowed is the authorization policy: does the caller's role grant the
// capability. Kept as one function so every admin route shares it instead of
// re-checking roles inline.
func Allowed(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// RequireRole aborts with 403 unless the authenticated caller holds one of
// the allowed roles. Must run after AuthMiddleware.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if !Allowed(role, allowed...) {
			utils.RespondAppError(c, utils.NewAuthorizationError("role %q does not have access", role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff allows any back-office role.
func RequireStaff() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin, models.RoleManager, models.RoleStaff)
}

// RequireManager allows the roles that may manage menus and users.
func RequireManager() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin, models.RoleManager)
}

package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/ioplusd/internal/types"
)

const (
	ctxPermissions = "permissions"
	ctxUserID      = "user_id"
	ctxUsername    = "username"
	ctxRole        = "role"
)

func abort(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, types.NewErrorResponse(code, message, details))
}

// AuthMiddleware requires a valid "Bearer <token>" header and stores the
// caller's identity and permissions in the request context.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
		if !found || scheme != "Bearer" || token == "" {
			abort(c, http.StatusUnauthorized, types.CodeAuthUnauthorized, "Missing or malformed bearer token", nil)
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, types.CodeAuthUnauthorized, "Invalid or expired token", nil)
			return
		}

		c.Set(ctxPermissions, RoleToPermissions(claims.Role))
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequirePermission rejects callers whose role lacks required.
func RequirePermission(required Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(GetUserPermissions(c), required) {
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, types.CodeAuthForbidden, "Insufficient permissions", string(required))
	}
}

// GetUserPermissions extracts permissions from context
func GetUserPermissions(c *gin.Context) []Permission {
	if perms, ok := c.Get(ctxPermissions); ok {
		if p, ok := perms.([]Permission); ok {
			return p
		}
	}
	return nil
}

// GetUsername returns the authenticated user name, if any.
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

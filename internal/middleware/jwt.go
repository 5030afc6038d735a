package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
	"github.com/acadgrid/timetable-api/pkg/response"
)

// Context keys set by JWTAuth.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextClaims   = "claims"
)

// TokenValidator verifies access tokens, typically the auth service.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the
// claims on the request context.
func JWTAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRoles limits a route group to the given roles. Admins pass every
// check.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		value, ok := c.Get(ContextUserRole)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		role, ok := value.(models.UserRole)
		if !ok || (!allowed[role] && role != models.RoleAdmin) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}

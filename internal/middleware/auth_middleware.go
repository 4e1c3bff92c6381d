package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seinetours/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// AdminContextKey is the key used to store admin information in Gin context
const AdminContextKey = "admin"

// AdminContext represents the authenticated operator
type AdminContext struct {
	AdminID uuid.UUID `json:"adminId"`
	Email   string    `json:"email"`
	Roles   []string  `json:"roles"`
}

// HasRole reports whether the admin carries role
func (a AdminContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"code":  code,
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthMiddleware creates a middleware that validates admin access tokens
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Debug("Auth failed: missing authorization header")
			abortUnauthorized(c, "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"ip":    c.ClientIP(),
				"error": err.Error(),
			}).Warn("Auth failed: invalid access token")
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Access token has expired. Please refresh your token.", "TOKEN_EXPIRED")
				return
			}
			abortUnauthorized(c, "Invalid access token", "INVALID_TOKEN")
			return
		}

		c.Set(AdminContextKey, AdminContext{
			AdminID: claims.AdminID,
			Email:   claims.Email,
			Roles:   claims.Roles,
		})
		c.Next()
	}
}

// OptionalAuth attaches the admin context when a valid token is present and
// lets anonymous requests through. Invalid tokens are still rejected.
func OptionalAuth(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	strict := AuthMiddleware(jwtService, logger)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		strict(c)
	}
}

// RequireRole creates a middleware that checks the admin has one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, exists := GetAdminContext(c)
		if !exists {
			abortUnauthorized(c, "Authentication required", "MISSING_ADMIN_CONTEXT")
			return
		}

		for _, role := range roles {
			if admin.HasRole(role) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "You don't have permission to access this resource",
			"code":  "INSUFFICIENT_PERMISSIONS",
		})
	}
}

// GetAdminContext retrieves the admin context from Gin context
func GetAdminContext(c *gin.Context) (AdminContext, bool) {
	value, exists := c.Get(AdminContextKey)
	if !exists {
		return AdminContext{}, false
	}
	admin, ok := value.(AdminContext)
	return admin, ok
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/aegis/internal/metrics"
	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// IdentityKey is the gin context key holding the request's Identity.
const IdentityKey = "identity"

// Identity is the immutable request-scoped view of the caller. Role and
// Department come from the point-in-time store lookup, which is
// authoritative for authorization; TokenRole is the role embedded in the
// credential at issuance, retained for audit display only.
type Identity struct {
	UserID     uint
	Name       string
	Role       models.Role
	Department string
	TokenRole  models.Role
}

// Actor converts the identity into the snapshot the anomaly rules consume.
func (id Identity) Actor() services.Actor {
	return services.Actor{ID: id.UserID, Name: id.Name, Role: id.Role}
}

// GetIdentity returns the request identity set by AuthMiddleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// AuthMiddleware validates the bearer credential and attaches the caller's
// identity. No handler runs without a valid, unexpired token and a live
// account behind it; a failed account lookup denies rather than allows.
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Role may have changed since the token was issued; the store is
		// authoritative so a revocation takes effect immediately.
		user, err := authService.GetUserByID(claims.UserID)
		if err != nil || !user.Enabled {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not available"})
			return
		}

		c.Set(IdentityKey, Identity{
			UserID:     user.ID,
			Name:       user.Name,
			Role:       user.Role,
			Department: user.Department,
			TokenRole:  claims.Role,
		})
		c.Next()
	}
}

// RequireRole enforces a static role allow-list. A miss is an expected
// authorization boundary: it denies with 403 and produces no audit event.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		metrics.IncDeniedRequest()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role for this resource"})
	}
}

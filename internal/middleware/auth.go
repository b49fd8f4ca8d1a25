package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/constants"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
)

// IdentityResolver turns a session user id into an identity.
type IdentityResolver interface {
	ResolveIdentity(userID uint64) (*access.Identity, error)
}

// LoadIdentity resolves the session user into an identity for the rest of
// the chain. Requests without a session continue anonymously; a session whose
// user no longer exists is cleared.
func LoadIdentity(resolver IdentityResolver, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUint64(session.Get(constants.ContextKeyUserID))
		if !ok {
			c.Next()
			return
		}

		identity, err := resolver.ResolveIdentity(userID)
		if err != nil {
			if !apierrors.IsKind(err, apierrors.KindNotFound) {
				log.WithError(err).WithField("user_id", userID).Error("failed to resolve session identity")
				apierrors.Respond(c, err)
				c.Abort()
				return
			}
			session.Clear()
			_ = session.Save()
			c.Next()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyIdentity, identity)
		c.Next()
	}
}

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity loaded by LoadIdentity, or nil for anonymous requests.
func GetIdentity(c *gin.Context) *access.Identity {
	v, exists := c.Get(constants.ContextKeyIdentity)
	if !exists {
		return nil
	}
	identity, _ := v.(*access.Identity)
	return identity
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

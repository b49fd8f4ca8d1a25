package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/access"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
)

// RequirePermission aborts unless the identity may perform action on kind.
// Area-scoped kinds are checked against the identity's own area; services
// check again against the actual record.
func RequirePermission(action access.Action, kind access.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)

		res := access.Global(kind)
		if identity != nil {
			res.AreaID = identity.AreaID
		}

		decision := access.Permit(identity, action, res)
		if !decision.Allowed {
			if decision.Reason == access.ReasonUnauthenticated {
				apierrors.Unauthorized(c, string(decision.Reason))
			} else {
				apierrors.Forbidden(c, string(decision.Reason))
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

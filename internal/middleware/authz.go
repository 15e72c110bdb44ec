package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/metrics"
	"github.com/harborlane/harborlane/pkg/response"
)

// RequireScope authorizes the caller against the gate for an action on the
// scope identified by the named route parameter. Runs after Auth.
func RequireScope(gate *authz.Gate, scopeType authz.ScopeType, action authz.Action, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := UserID(c)
		if callerID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		scopeID := c.Param(param)
		allowed, err := gate.Authorize(c.Request.Context(), callerID, scopeType, scopeID, action)
		if err != nil {
			metrics.AuthzDecisions.WithLabelValues(string(action), "error").Inc()
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			metrics.AuthzDecisions.WithLabelValues(string(action), "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.AuthzDecisions.WithLabelValues(string(action), "allowed").Inc()
		c.Next()
	}
}

// RequireAdmin restricts a route group to platform administrators.
func RequireAdmin(gate *authz.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := UserID(c)
		if callerID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := gate.AuthorizeAdmin(c.Request.Context(), callerID)
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/internal/handlers"
	"github.com/harborlane/harborlane/internal/middleware"
)

func registerInviteRoutes(api *gin.RouterGroup, svcs *Services, gate *authz.Gate, requireAuth gin.HandlerFunc) error {
	inviteHandler, err := handlers.NewInviteHandler(svcs.Invites)
	if err != nil {
		return err
	}

	orgInvites := api.Group("/organizations/:id/invites", requireAuth,
		middleware.RequireScope(gate, authz.ScopeOrganization, authz.ActionInviteMember, "id"))
	{
		orgInvites.POST("", inviteHandler.CreateForOrganization)
		orgInvites.GET("", inviteHandler.ListForOrganization)
		orgInvites.DELETE("/:inviteId", inviteHandler.Revoke)
	}

	teamInvites := api.Group("/teams/:id/invites", requireAuth,
		middleware.RequireScope(gate, authz.ScopeTeam, authz.ActionInviteMember, "id"))
	{
		teamInvites.POST("", inviteHandler.CreateForTeam)
		teamInvites.GET("", inviteHandler.ListForTeam)
		teamInvites.DELETE("/:inviteId", inviteHandler.Revoke)
	}

	// Accepting requires authentication but no prior scope membership.
	api.POST("/invites/accept", requireAuth, inviteHandler.Accept)

	return nil
}

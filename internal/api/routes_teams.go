package api

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/internal/handlers"
	"github.com/harborlane/harborlane/internal/middleware"
)

func registerTeamRoutes(api *gin.RouterGroup, svcs *Services, gate *authz.Gate, requireAuth gin.HandlerFunc) error {
	teamHandler, err := handlers.NewTeamHandler(svcs.Teams)
	if err != nil {
		return err
	}
	memberHandler, err := handlers.NewTeamMemberHandler(svcs.Teams)
	if err != nil {
		return err
	}

	requireTeam := func(action authz.Action) gin.HandlerFunc {
		return middleware.RequireScope(gate, authz.ScopeTeam, action, "id")
	}

	teams := api.Group("/teams", requireAuth)
	{
		teams.POST("", teamHandler.Create)
		teams.GET("", teamHandler.List)
		teams.GET("/:id", requireTeam(authz.ActionViewMembers), teamHandler.Get)
		teams.PATCH("/:id", requireTeam(authz.ActionManageScope), teamHandler.Update)

		teams.GET("/:id/members", requireTeam(authz.ActionViewMembers), memberHandler.List)
		teams.POST("/:id/members", requireTeam(authz.ActionInviteMember), memberHandler.Add)
		teams.PATCH("/:id/members/:userId", requireTeam(authz.ActionChangeMemberRole), memberHandler.ChangeRole)
		teams.DELETE("/:id/members/:userId", requireTeam(authz.ActionRemoveMember), memberHandler.Remove)
		teams.POST("/:id/transfer", requireTeam(authz.ActionTransferOwnership), memberHandler.TransferOwnership)

		// Leaving only requires being a member; the service enforces owner rules.
		teams.POST("/:id/leave", memberHandler.Leave)
	}

	return nil
}

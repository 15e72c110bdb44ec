package api

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/internal/handlers"
	"github.com/harborlane/harborlane/internal/middleware"
)

func registerOrganizationRoutes(api *gin.RouterGroup, svcs *Services, gate *authz.Gate, requireAuth gin.HandlerFunc) error {
	orgHandler, err := handlers.NewOrganizationHandler(svcs.Orgs)
	if err != nil {
		return err
	}
	memberHandler, err := handlers.NewOrganizationMemberHandler(svcs.Orgs)
	if err != nil {
		return err
	}

	requireOrg := func(action authz.Action) gin.HandlerFunc {
		return middleware.RequireScope(gate, authz.ScopeOrganization, action, "id")
	}

	orgs := api.Group("/organizations", requireAuth)
	{
		orgs.POST("", orgHandler.Create)
		orgs.GET("", orgHandler.List)
		orgs.GET("/:id", requireOrg(authz.ActionViewMembers), orgHandler.Get)
		orgs.PATCH("/:id", requireOrg(authz.ActionManageScope), orgHandler.Update)
		orgs.DELETE("/:id", requireOrg(authz.ActionManageScope), orgHandler.Deactivate)

		orgs.GET("/:id/members", requireOrg(authz.ActionViewMembers), memberHandler.List)
		orgs.POST("/:id/members", requireOrg(authz.ActionInviteMember), memberHandler.Add)
		orgs.PATCH("/:id/members/:userId", requireOrg(authz.ActionChangeMemberRole), memberHandler.ChangeRole)
		orgs.DELETE("/:id/members/:userId", requireOrg(authz.ActionRemoveMember), memberHandler.Remove)
		orgs.POST("/:id/transfer", requireOrg(authz.ActionTransferOwnership), memberHandler.TransferOwnership)
	}

	return nil
}

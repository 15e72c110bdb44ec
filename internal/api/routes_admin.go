package api

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/internal/handlers"
	"github.com/harborlane/harborlane/internal/middleware"
)

func registerAdminRoutes(api *gin.RouterGroup, svcs *Services, gate *authz.Gate, requireAuth gin.HandlerFunc) error {
	userHandler, err := handlers.NewUserHandler(svcs.Users)
	if err != nil {
		return err
	}
	orgHandler, err := handlers.NewOrganizationHandler(svcs.Orgs)
	if err != nil {
		return err
	}
	auditHandler, err := handlers.NewAuditHandler(svcs.Audit)
	if err != nil {
		return err
	}

	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin(gate))
	{
		admin.GET("/users", userHandler.List)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id/role", userHandler.SetGlobalRole)
		admin.PUT("/users/:id/active", userHandler.SetActive)

		admin.GET("/organizations", orgHandler.ListAll)
		admin.DELETE("/organizations/:id", orgHandler.Deactivate)

		// Direct owner reassignment for support interventions.
		admin.PUT("/organizations/:id/owner", orgHandler.TransferOwnership)

		admin.GET("/audit", auditHandler.List)
	}

	return nil
}

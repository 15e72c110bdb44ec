package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/harborlane/harborlane/internal/auth"
	"github.com/harborlane/harborlane/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, api *gin.RouterGroup, svcs *Services, sessions *iauth.SessionService, requireAuth gin.HandlerFunc) error {
	authHandler, err := handlers.NewAuthHandler(svcs.Users, sessions)
	if err != nil {
		return err
	}

	// Public auth routes
	public := r.Group("/api/auth")
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
		public.POST("/refresh", authHandler.Refresh)
	}

	// Authenticated auth routes
	auth := api.Group("/auth", requireAuth)
	{
		auth.GET("/me", authHandler.Me)
		auth.POST("/logout", authHandler.Logout)
	}

	return nil
}

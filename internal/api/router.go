package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/app"
	iauth "github.com/harborlane/harborlane/internal/auth"
	"github.com/harborlane/harborlane/internal/authz"
	"github.com/harborlane/harborlane/internal/handlers"
	"github.com/harborlane/harborlane/internal/middleware"
	"github.com/harborlane/harborlane/internal/services"
	"github.com/harborlane/harborlane/pkg/mail"
)

// Services bundles the constructed service layer shared by the route modules.
type Services struct {
	Users   *services.UserService
	Orgs    *services.OrganizationService
	Teams   *services.TeamService
	Invites *services.InviteService
	Audit   *services.AuditService
}

// BuildServices wires the service layer from the database handle and config.
func BuildServices(db *gorm.DB, cfg *app.Config, mailer mail.Mailer) (*Services, error) {
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}
	orgs, err := services.NewOrganizationService(db, audit)
	if err != nil {
		return nil, err
	}
	teams, err := services.NewTeamService(db, audit)
	if err != nil {
		return nil, err
	}
	invites, err := services.NewInviteService(db, orgs, teams, mailer, cfg.Server.BaseURL, audit)
	if err != nil {
		return nil, err
	}

	return &Services{Users: users, Orgs: orgs, Teams: teams, Invites: invites, Audit: audit}, nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, sessions *iauth.SessionService, cfg *app.Config, svcs *Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	gate, err := authz.NewGate(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	maxRequests := cfg.Server.RateLimit.MaxRequests
	window := cfg.Server.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	r.Use(middleware.RateLimit(maxRequests, window))

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.Auth(jwt)
	api := r.Group("/api")

	if err := registerAuthRoutes(r, api, svcs, sessions, requireAuth); err != nil {
		return nil, err
	}
	if err := registerOrganizationRoutes(api, svcs, gate, requireAuth); err != nil {
		return nil, err
	}
	if err := registerTeamRoutes(api, svcs, gate, requireAuth); err != nil {
		return nil, err
	}
	if err := registerInviteRoutes(api, svcs, gate, requireAuth); err != nil {
		return nil, err
	}
	if err := registerAdminRoutes(api, svcs, gate, requireAuth); err != nil {
		return nil, err
	}

	return r, nil
}

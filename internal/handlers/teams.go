package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/harborlane/harborlane/internal/middleware"
	"github.com/harborlane/harborlane/internal/services"
	"github.com/harborlane/harborlane/pkg/response"
)

// TeamHandler serves team scope endpoints.
type TeamHandler struct {
	teams *services.TeamService
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(teams *services.TeamService) (*TeamHandler, error) {
	if teams == nil {
		return nil, errors.New("team handler: service is required")
	}
	return &TeamHandler{teams: teams}, nil
}

type createTeamRequest struct {
	Name           string         `json:"name" validate:"required,min=2,max=128"`
	Description    string         `json:"description" validate:"max=512"`
	OrganizationID string         `json:"organization_id"`
	MaxMembers     int            `json:"max_members" validate:"min=0"`
	Settings       datatypes.JSON `json:"settings"`
}

// Create provisions a new team owned by the caller.
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var orgID *string
	if id := strings.TrimSpace(req.OrganizationID); id != "" {
		orgID = &id
	}

	team, err := h.teams.Create(requestContext(c), services.CreateTeamInput{
		Name:           req.Name,
		Description:    req.Description,
		OwnerID:        middleware.UserID(c),
		OrganizationID: orgID,
		MaxMembers:     req.MaxMembers,
		Settings:       req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, team)
}

// List returns teams the caller belongs to.
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teams.ListForUser(requestContext(c), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

// Get returns a single team.
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

type updateTeamRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=2,max=128"`
	Description *string        `json:"description" validate:"omitempty,max=512"`
	MaxMembers  *int           `json:"max_members" validate:"omitempty,min=0"`
	Settings    datatypes.JSON `json:"settings"`
}

// Update applies mutable attributes to a team.
func (h *TeamHandler) Update(c *gin.Context) {
	var req updateTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	team, err := h.teams.Update(requestContext(c), c.Param("id"), services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		MaxMembers:  req.MaxMembers,
		Settings:    req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, team)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/middleware"
	"github.com/harborlane/harborlane/internal/roles"
	"github.com/harborlane/harborlane/internal/services"
	appErrors "github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/response"
)

// TeamMemberHandler serves membership endpoints under a team.
type TeamMemberHandler struct {
	teams *services.TeamService
}

// NewTeamMemberHandler constructs a TeamMemberHandler.
func NewTeamMemberHandler(teams *services.TeamService) (*TeamMemberHandler, error) {
	if teams == nil {
		return nil, errors.New("team member handler: service is required")
	}
	return &TeamMemberHandler{teams: teams}, nil
}

// List returns the team's members.
func (h *TeamMemberHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	members, total, err := h.teams.ListMembers(requestContext(c), c.Param("id"), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, members, paginationMeta(page, perPage, total))
}

type addTeamMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// Add inserts a new member into the team.
func (h *TeamMemberHandler) Add(c *gin.Context) {
	var req addTeamMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, ok := roles.ParseTeamRole(req.Role)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("unknown team role"))
		return
	}

	membership, err := h.teams.AddMember(requestContext(c), c.Param("id"), req.UserID, role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, membership)
}

type changeTeamRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeRole updates a member's role. Promoting to owner performs an
// ownership transfer.
func (h *TeamMemberHandler) ChangeRole(c *gin.Context) {
	var req changeTeamRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, ok := roles.ParseTeamRole(req.Role)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("unknown team role"))
		return
	}

	membership, err := h.teams.ChangeMemberRole(requestContext(c), c.Param("id"), c.Param("userId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, membership)
}

// Remove deletes a member from the team.
func (h *TeamMemberHandler) Remove(c *gin.Context) {
	if err := h.teams.RemoveMember(requestContext(c), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

type transferTeamOwnershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TransferOwnership moves the owner role to another member.
func (h *TeamMemberHandler) TransferOwnership(c *gin.Context) {
	var req transferTeamOwnershipRequest
	if !bindAndValidate(c, &req) {
		return
	}

	membership, err := h.teams.TransferOwnership(requestContext(c), c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, membership)
}

// Leave lets the caller depart the team on their own.
func (h *TeamMemberHandler) Leave(c *gin.Context) {
	if err := h.teams.Leave(requestContext(c), c.Param("id"), middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"left": true})
}

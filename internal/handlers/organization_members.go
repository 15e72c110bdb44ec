package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/roles"
	"github.com/harborlane/harborlane/internal/services"
	appErrors "github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/response"
)

// OrganizationMemberHandler serves membership endpoints under an organization.
type OrganizationMemberHandler struct {
	orgs *services.OrganizationService
}

// NewOrganizationMemberHandler constructs an OrganizationMemberHandler.
func NewOrganizationMemberHandler(orgs *services.OrganizationService) (*OrganizationMemberHandler, error) {
	if orgs == nil {
		return nil, errors.New("organization member handler: service is required")
	}
	return &OrganizationMemberHandler{orgs: orgs}, nil
}

// List returns the organization's members.
func (h *OrganizationMemberHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	members, total, err := h.orgs.ListMembers(requestContext(c), c.Param("id"), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, members, paginationMeta(page, perPage, total))
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

// Add inserts a new member into the organization.
func (h *OrganizationMemberHandler) Add(c *gin.Context) {
	var req addMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, ok := roles.ParseOrgRole(req.Role)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("unknown organization role"))
		return
	}

	membership, err := h.orgs.AddMember(requestContext(c), c.Param("id"), req.UserID, role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, membership)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeRole updates a member's role. Promoting to owner performs an
// ownership transfer.
func (h *OrganizationMemberHandler) ChangeRole(c *gin.Context) {
	var req changeRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, ok := roles.ParseOrgRole(req.Role)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("unknown organization role"))
		return
	}

	membership, err := h.orgs.ChangeMemberRole(requestContext(c), c.Param("id"), c.Param("userId"), role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, membership)
}

// Remove deletes a member from the organization.
func (h *OrganizationMemberHandler) Remove(c *gin.Context) {
	if err := h.orgs.RemoveMember(requestContext(c), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

type transferOwnershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// TransferOwnership moves the owner role to another member.
func (h *OrganizationMemberHandler) TransferOwnership(c *gin.Context) {
	var req transferOwnershipRequest
	if !bindAndValidate(c, &req) {
		return
	}

	membership, err := h.orgs.TransferOwnership(requestContext(c), c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, membership)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/harborlane/harborlane/internal/middleware"
	"github.com/harborlane/harborlane/internal/services"
	"github.com/harborlane/harborlane/pkg/response"
)

// OrganizationHandler serves organization scope endpoints.
type OrganizationHandler struct {
	orgs *services.OrganizationService
}

// NewOrganizationHandler constructs an OrganizationHandler.
func NewOrganizationHandler(orgs *services.OrganizationService) (*OrganizationHandler, error) {
	if orgs == nil {
		return nil, errors.New("organization handler: service is required")
	}
	return &OrganizationHandler{orgs: orgs}, nil
}

type createOrganizationRequest struct {
	Name        string         `json:"name" validate:"required,min=2,max=128"`
	Description string         `json:"description" validate:"max=512"`
	MaxMembers  int            `json:"max_members" validate:"min=0"`
	MaxTeams    int            `json:"max_teams" validate:"min=0"`
	Settings    datatypes.JSON `json:"settings"`
}

// Create provisions a new organization owned by the caller.
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req createOrganizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Create(requestContext(c), services.CreateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     middleware.UserID(c),
		MaxMembers:  req.MaxMembers,
		MaxTeams:    req.MaxTeams,
		Settings:    req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, org)
}

// List returns organizations the caller belongs to.
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.ListForUser(requestContext(c), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, orgs)
}

// ListAll returns every organization, paginated. Admin console only.
func (h *OrganizationHandler) ListAll(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	orgs, total, err := h.orgs.List(requestContext(c), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, orgs, paginationMeta(page, perPage, total))
}

// Get returns a single organization.
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, org)
}

type updateOrganizationRequest struct {
	Name        *string        `json:"name" validate:"omitempty,min=2,max=128"`
	Description *string        `json:"description" validate:"omitempty,max=512"`
	MaxMembers  *int           `json:"max_members" validate:"omitempty,min=0"`
	MaxTeams    *int           `json:"max_teams" validate:"omitempty,min=0"`
	Settings    datatypes.JSON `json:"settings"`
}

// Update applies mutable attributes to an organization.
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req updateOrganizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	org, err := h.orgs.Update(requestContext(c), c.Param("id"), services.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		MaxMembers:  req.MaxMembers,
		MaxTeams:    req.MaxTeams,
		Settings:    req.Settings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, org)
}

// Deactivate marks an organization inactive.
func (h *OrganizationHandler) Deactivate(c *gin.Context) {
	if err := h.orgs.Deactivate(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

// TransferOwnership is the admin-console direct owner reassignment endpoint.
func (h *OrganizationHandler) TransferOwnership(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" validate:"required"`
	}
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

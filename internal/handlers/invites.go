package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlane/harborlane/internal/middleware"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/services"
	appErrors "github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/response"
)

// InviteHandler serves invitation endpoints for both scope types.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) (*InviteHandler, error) {
	if invites == nil {
		return nil, errors.New("invite handler: service is required")
	}
	return &InviteHandler{invites: invites}, nil
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// CreateForOrganization issues an invite into an organization.
func (h *InviteHandler) CreateForOrganization(c *gin.Context) {
	h.create(c, models.InviteScopeOrganization)
}

// CreateForTeam issues an invite into a team.
func (h *InviteHandler) CreateForTeam(c *gin.Context) {
	h.create(c, models.InviteScopeTeam)
}

func (h *InviteHandler) create(c *gin.Context, scopeType string) {
	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invite, token, err := h.invites.Create(requestContext(c), services.CreateInviteInput{
		Email:     req.Email,
		InvitedBy: middleware.UserID(c),
		ScopeType: scopeType,
		ScopeID:   c.Param("id"),
		Role:      req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// The raw token is surfaced once for out-of-band delivery.
	response.Success(c, http.StatusCreated, gin.H{
		"invite": invite,
		"token":  token,
	})
}

// ListForOrganization returns pending organization invites.
func (h *InviteHandler) ListForOrganization(c *gin.Context) {
	h.list(c, models.InviteScopeOrganization)
}

// ListForTeam returns pending team invites.
func (h *InviteHandler) ListForTeam(c *gin.Context) {
	h.list(c, models.InviteScopeTeam)
}

func (h *InviteHandler) list(c *gin.Context, scopeType string) {
	invites, err := h.invites.ListForScope(requestContext(c), scopeType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invites)
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// Accept redeems an invite token for the authenticated caller.
func (h *InviteHandler) Accept(c *gin.Context) {
	var req acceptInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	invite, err := h.invites.Accept(requestContext(c), req.Token, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invite)
}

// Revoke deletes a pending invite.
func (h *InviteHandler) Revoke(c *gin.Context) {
	if err := h.invites.Revoke(requestContext(c), c.Param("inviteId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

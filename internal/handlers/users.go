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

// UserHandler serves admin-console user endpoints.
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService) (*UserHandler, error) {
	if users == nil {
		return nil, errors.New("user handler: service is required")
	}
	return &UserHandler{users: users}, nil
}

// List returns a page of users.
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	users, total, err := h.users.List(requestContext(c), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, paginationMeta(page, perPage, total))
}

// Get returns a single user.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

type setGlobalRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// SetGlobalRole assigns a platform-wide role to a user.
func (h *UserHandler) SetGlobalRole(c *gin.Context) {
	var req setGlobalRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	role, ok := roles.ParseGlobalRole(req.Role)
	if !ok {
		response.Error(c, appErrors.NewBadRequest("unknown global role"))
		return
	}

	user, err := h.users.SetGlobalRole(requestContext(c), c.Param("id"), role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetActive enables or disables a user account.
func (h *UserHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetActive(requestContext(c), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

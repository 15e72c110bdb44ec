package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

// ScopeType identifies the kind of scope an action targets.
type ScopeType string

const (
	ScopeOrganization ScopeType = "organization"
	ScopeTeam         ScopeType = "team"
)

// Action is a membership lifecycle operation subject to authorization.
type Action string

const (
	ActionViewMembers       Action = "members.view"
	ActionInviteMember      Action = "members.invite"
	ActionChangeMemberRole  Action = "members.change_role"
	ActionTransferOwnership Action = "members.transfer_ownership"
	ActionRemoveMember      Action = "members.remove"
	ActionManageScope       Action = "scope.manage"
)

// Minimum scope role required per action. Platform admins bypass the table
// entirely and are checked before it is consulted.
var orgMinRole = map[Action]roles.OrgRole{
	ActionViewMembers:       roles.OrgGuest,
	ActionInviteMember:      roles.OrgAdmin,
	ActionChangeMemberRole:  roles.OrgAdmin,
	ActionTransferOwnership: roles.OrgOwner,
	ActionRemoveMember:      roles.OrgAdmin,
	ActionManageScope:       roles.OrgAdmin,
}

var teamMinRole = map[Action]roles.TeamRole{
	ActionViewMembers:       roles.TeamViewer,
	ActionInviteMember:      roles.TeamLeader,
	ActionChangeMemberRole:  roles.TeamLeader,
	ActionTransferOwnership: roles.TeamOwner,
	ActionRemoveMember:      roles.TeamLeader,
	ActionManageScope:       roles.TeamLeader,
}

// Gate decides whether a caller may invoke a lifecycle transition in a scope.
type Gate struct {
	db *gorm.DB
}

// NewGate constructs an authorization gate backed by the provided database.
func NewGate(db *gorm.DB) (*Gate, error) {
	if db == nil {
		return nil, errors.New("authz gate: db is required")
	}
	return &Gate{db: db}, nil
}

// Authorize reports whether callerID may perform action in the given scope.
// A platform admin is authorized for every action regardless of scope
// membership; everyone else must hold a membership at or above the action's
// minimum role.
func (g *Gate) Authorize(ctx context.Context, callerID string, scopeType ScopeType, scopeID string, action Action) (bool, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false, errors.New("authz gate: caller id is required")
	}
	if strings.TrimSpace(scopeID) == "" {
		return false, errors.New("authz gate: scope id is required")
	}

	var caller models.User
	if err := g.db.WithContext(ctx).First(&caller, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("authz gate: load caller: %w", err)
	}

	if !caller.IsActive {
		return false, nil
	}

	// Platform admin bypass comes first, before any scope lookup.
	if roles.IsAdmin(caller.Role) {
		return true, nil
	}

	switch scopeType {
	case ScopeOrganization:
		return g.authorizeOrg(ctx, callerID, scopeID, action)
	case ScopeTeam:
		return g.authorizeTeam(ctx, callerID, scopeID, action)
	default:
		return false, fmt.Errorf("authz gate: unknown scope type %q", scopeType)
	}
}

func (g *Gate) authorizeOrg(ctx context.Context, callerID, orgID string, action Action) (bool, error) {
	required, ok := orgMinRole[action]
	if !ok {
		return false, fmt.Errorf("authz gate: unknown action %q", action)
	}

	var membership models.OrganizationMembership
	err := g.db.WithContext(ctx).
		First(&membership, "user_id = ? AND organization_id = ?", callerID, orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authz gate: load org membership: %w", err)
	}

	return membership.Role.AtLeast(required), nil
}

func (g *Gate) authorizeTeam(ctx context.Context, callerID, teamID string, action Action) (bool, error) {
	required, ok := teamMinRole[action]
	if !ok {
		return false, fmt.Errorf("authz gate: unknown action %q", action)
	}

	var membership models.TeamMembership
	err := g.db.WithContext(ctx).
		First(&membership, "user_id = ? AND team_id = ?", callerID, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("authz gate: load team membership: %w", err)
	}

	return membership.Role.AtLeast(required), nil
}

// AuthorizeAdmin reports whether the caller may use platform admin endpoints.
func (g *Gate) AuthorizeAdmin(ctx context.Context, callerID string) (bool, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false, errors.New("authz gate: caller id is required")
	}

	var caller models.User
	if err := g.db.WithContext(ctx).First(&caller, "id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("authz gate: load caller: %w", err)
	}

	return caller.IsActive && roles.CanAccessAdminConsole(caller.Role), nil
}

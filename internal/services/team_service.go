package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/guard"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
	apperrors "github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/metrics"
)

// ErrTeamNotFound indicates the team does not exist or is inactive.
var ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)

// CreateTeamInput carries the attributes for a new team.
type CreateTeamInput struct {
	Name           string
	Description    string
	OwnerID        string
	OrganizationID *string
	MaxMembers     int
	Settings       datatypes.JSON
}

// UpdateTeamInput carries mutable team attributes. Nil fields are left untouched.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	MaxMembers  *int
	Settings    datatypes.JSON
}

// TeamService implements the team half of the membership lifecycle, including
// the self-leave path with its sole-owner cascade. Mutations run guard checks
// and writes on one transaction handle, and team leadership changes feed back
// into the member's derived global role.
type TeamService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, auditService *AuditService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{db: db, auditService: auditService}, nil
}

// Create provisions a team and seeds the creator as its owner. When the team
// is parented under an organization the creator must already belong to it and
// the organization's team ceiling applies. Owning a team lifts the creator's
// global role to team leader.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, apperrors.NewBadRequest("team owner is required")
	}

	maxMembers := input.MaxMembers
	if maxMembers <= 0 {
		maxMembers = models.DefaultTeamMaxMembers
	}

	team := &models.Team{
		Name:           name,
		Slug:           slugify(name),
		Description:    strings.TrimSpace(input.Description),
		MaxMembers:     maxMembers,
		IsActive:       true,
		OrganizationID: input.OrganizationID,
		OwnerID:        input.OwnerID,
		Settings:       input.Settings,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, "id = ?", input.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("team service: load owner: %w", err)
		}
		if !owner.IsActive {
			return ErrUserInactive
		}

		if input.OrganizationID != nil && *input.OrganizationID != "" {
			var org models.Organization
			if err := tx.First(&org, "id = ?", *input.OrganizationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOrganizationNotFound
				}
				return fmt.Errorf("team service: load organization: %w", err)
			}
			if !org.IsActive {
				return ErrOrganizationNotFound
			}

			var orgMember models.OrganizationMembership
			err := tx.Where("organization_id = ? AND user_id = ?", org.ID, owner.ID).First(&orgMember).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			if err != nil {
				return fmt.Errorf("team service: load org membership: %w", err)
			}

			var teamCount int64
			if err := tx.Model(&models.Team{}).
				Where("organization_id = ?", org.ID).
				Count(&teamCount).Error; err != nil {
				return fmt.Errorf("team service: count org teams: %w", err)
			}
			if err := guard.CheckCapacity(teamCount, org.MaxTeams); err != nil {
				return err
			}
		}

		if err := tx.Create(team).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewBadRequest("team name already taken")
			}
			return fmt.Errorf("team service: create team: %w", err)
		}

		membership := models.TeamMembership{
			UserID:   owner.ID,
			TeamID:   team.ID,
			Role:     roles.TeamOwner,
			JoinedAt: time.Now().UTC(),
		}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("team service: create owner membership: %w", err)
		}

		return recomputeGlobalRole(tx, owner.ID)
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", "create_scope", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("team", "create_scope", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &team.OwnerID,
		Action:   "team.create",
		Resource: team.ID,
		Result:   "success",
	})

	return team, nil
}

// GetByID loads a team by identifier.
func (s *TeamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: get team: %w", err)
	}
	return &team, nil
}

// List returns a page of teams ordered by name.
func (s *TeamService) List(ctx context.Context, page, perPage int) ([]models.Team, int64, error) {
	ctx = ensureContext(ctx)

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Team{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("team service: count teams: %w", err)
	}

	var teams []models.Team
	if err := s.db.WithContext(ctx).
		Order("name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&teams).Error; err != nil {
		return nil, 0, fmt.Errorf("team service: list teams: %w", err)
	}

	return teams, total, nil
}

// ListForUser returns the teams the user belongs to.
func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	var teams []models.Team
	err := s.db.WithContext(ctx).
		Joins("JOIN team_memberships tm ON tm.team_id = teams.id").
		Where("tm.user_id = ?", userID).
		Order("teams.name ASC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list for user: %w", err)
	}
	return teams, nil
}

// Update applies mutable team attributes.
func (s *TeamService) Update(ctx context.Context, id string, input UpdateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("team name cannot be empty")
		}
		updates["name"] = name
		updates["slug"] = slugify(name)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.MaxMembers != nil {
		if *input.MaxMembers < 0 {
			return nil, apperrors.NewBadRequest("max_members cannot be negative")
		}
		updates["max_members"] = *input.MaxMembers
	}
	if input.Settings != nil {
		updates["settings"] = input.Settings
	}
	if len(updates) == 0 {
		return team, nil
	}

	if err := s.db.WithContext(ctx).Model(team).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("team name already taken")
		}
		return nil, fmt.Errorf("team service: update team: %w", err)
	}

	return s.GetByID(ctx, id)
}

// ListMembers returns the team's membership rows with user rows preloaded.
func (s *TeamService) ListMembers(ctx context.Context, teamID string, page, perPage int) ([]models.TeamMembership, int64, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, teamID); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.TeamMembership{}).
		Where("team_id = ?", teamID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("team service: count members: %w", err)
	}

	var memberships []models.TeamMembership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&memberships).Error; err != nil {
		return nil, 0, fmt.Errorf("team service: list members: %w", err)
	}

	return memberships, total, nil
}

// GetMembership returns the membership row for the (user, team) pair.
func (s *TeamService) GetMembership(ctx context.Context, teamID, userID string) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	var membership models.TeamMembership
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: get membership: %w", err)
	}
	return &membership, nil
}

// AddMember inserts a membership row after running the duplicate and capacity
// guards on the insert's own transaction. Adding someone directly as owner is
// rejected. Joining as leader lifts the member's global role.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, role roles.TeamRole) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown team role")
	}
	if role == roles.TeamOwner {
		return nil, apperrors.NewBadRequest("members cannot be added as owner; use ownership transfer")
	}

	var membership *models.TeamMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("team service: load team: %w", err)
		}
		if !team.IsActive {
			return ErrTeamNotFound
		}

		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("team service: load user: %w", err)
		}
		if !user.IsActive {
			return ErrUserNotFound
		}

		if team.OrganizationID != nil && *team.OrganizationID != "" {
			if err := tx.Where("organization_id = ? AND user_id = ?", *team.OrganizationID, userID).
				First(&models.OrganizationMembership{}).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrMemberNotFound
				}
				return fmt.Errorf("team service: load org membership: %w", err)
			}
		}

		if err := guard.CheckNotTeamMember(tx, userID, teamID); err != nil {
			return err
		}
		if err := guard.CheckTeamCapacity(tx, teamID, team.MaxMembers); err != nil {
			return err
		}

		row := models.TeamMembership{
			UserID:   userID,
			TeamID:   teamID,
			Role:     role,
			JoinedAt: time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return guard.ErrAlreadyMember
			}
			return fmt.Errorf("team service: create membership: %w", err)
		}
		membership = &row

		return recomputeGlobalRole(tx, userID)
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", "add", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("team", "add", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.member.add",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return membership, nil
}

// ChangeMemberRole updates a member's role within the team. Promoting to owner
// routes through TransferOwnership; demoting the current owner directly is
// rejected. The member's global role is recomputed in the same transaction.
func (s *TeamService) ChangeMemberRole(ctx context.Context, teamID, userID string, role roles.TeamRole) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown team role")
	}
	if role == roles.TeamOwner {
		return s.TransferOwnership(ctx, teamID, userID)
	}

	var membership *models.TeamMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.TeamMembership
		err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load membership: %w", err)
		}

		if row.Role == roles.TeamOwner {
			return ErrOwnerMustTransferFirst
		}

		if row.Role != role {
			if err := tx.Model(&row).Update("role", role).Error; err != nil {
				return fmt.Errorf("team service: update role: %w", err)
			}
			row.Role = role
		}
		membership = &row

		return recomputeGlobalRole(tx, userID)
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", "change_role", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("team", "change_role", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.member.change_role",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return membership, nil
}

// TransferOwnership atomically moves the owner role to an existing member.
// Both users' global roles are recomputed inside the same transaction.
func (s *TeamService) TransferOwnership(ctx context.Context, teamID, newOwnerID string) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	var membership *models.TeamMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("team service: load team: %w", err)
		}

		var target models.TeamMembership
		err := tx.Where("team_id = ? AND user_id = ?", teamID, newOwnerID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load target membership: %w", err)
		}
		if target.Role == roles.TeamOwner {
			membership = &target
			return nil
		}

		previousOwnerID := team.OwnerID

		if err := tx.Model(&models.TeamMembership{}).
			Where("team_id = ? AND role = ?", teamID, roles.TeamOwner).
			Update("role", roles.TeamOwnerDemotion).Error; err != nil {
			return fmt.Errorf("team service: demote owner: %w", err)
		}

		if err := tx.Model(&target).Update("role", roles.TeamOwner).Error; err != nil {
			return fmt.Errorf("team service: promote new owner: %w", err)
		}
		target.Role = roles.TeamOwner

		if err := guard.CheckSingleTeamOwner(tx, teamID, newOwnerID); err != nil {
			return err
		}

		if err := tx.Model(&team).Update("owner_id", newOwnerID).Error; err != nil {
			return fmt.Errorf("team service: update owner pointer: %w", err)
		}

		if previousOwnerID != "" && previousOwnerID != newOwnerID {
			if err := recomputeGlobalRole(tx, previousOwnerID); err != nil {
				return err
			}
		}
		if err := recomputeGlobalRole(tx, newOwnerID); err != nil {
			return err
		}

		membership = &target
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", "transfer_ownership", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("team", "transfer_ownership", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &newOwnerID,
		Action:   "team.transfer_ownership",
		Resource: teamID,
		Result:   "success",
	})

	return membership, nil
}

// RemoveMember deletes a membership row. The owner can never be removed.
// The removed member's global role is recomputed in the same transaction.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.TeamMembership
		err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load membership: %w", err)
		}

		if row.Role == roles.TeamOwner {
			return ErrCannotRemoveOwner
		}

		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("team service: delete membership: %w", err)
		}

		return recomputeGlobalRole(tx, userID)
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", "remove", "failure").Inc()
		return err
	}

	metrics.MembershipTransitions.WithLabelValues("team", "remove", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.member.remove",
		Resource: teamID,
		Result:   "success",
	})

	return nil
}

// Leave handles a member departing on their own. A sole owner leaving deletes
// the team and its memberships; an owner with remaining members must transfer
// ownership first. The leaver's global role is recomputed either way.
func (s *TeamService) Leave(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	transition := "leave"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.TeamMembership
		err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load membership: %w", err)
		}

		if row.Role == roles.TeamOwner {
			var others int64
			if err := tx.Model(&models.TeamMembership{}).
				Where("team_id = ? AND user_id <> ?", teamID, userID).
				Count(&others).Error; err != nil {
				return fmt.Errorf("team service: count remaining members: %w", err)
			}
			if others > 0 {
				return ErrOwnerMustTransferFirst
			}

			// Sole owner: the team dissolves with them.
			transition = "leave_cascade"
			if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamMembership{}).Error; err != nil {
				return fmt.Errorf("team service: delete memberships: %w", err)
			}
			if err := tx.Delete(&models.Team{}, "id = ?", teamID).Error; err != nil {
				return fmt.Errorf("team service: delete team: %w", err)
			}
			return recomputeGlobalRole(tx, userID)
		}

		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("team service: delete membership: %w", err)
		}
		return recomputeGlobalRole(tx, userID)
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("team", transition, "failure").Inc()
		return err
	}

	metrics.MembershipTransitions.WithLabelValues("team", transition, "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "team.member.leave",
		Resource: teamID,
		Result:   "success",
		Metadata: map[string]any{"transition": transition},
	})

	return nil
}

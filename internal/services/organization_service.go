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

var (
	// ErrOrganizationNotFound indicates the organization does not exist or is inactive.
	ErrOrganizationNotFound = apperrors.New("ORGANIZATION_NOT_FOUND", "Organization not found", http.StatusNotFound)
	// ErrMemberNotFound indicates no membership row exists for the (user, scope) pair.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "Member not found in this scope", http.StatusNotFound)
	// ErrCannotRemoveOwner rejects removing the owner membership outright.
	ErrCannotRemoveOwner = apperrors.New("CANNOT_REMOVE_OWNER", "The owner cannot be removed; transfer ownership first", http.StatusBadRequest)
	// ErrOwnerMustTransferFirst rejects demoting or departing an owner while other members remain.
	ErrOwnerMustTransferFirst = apperrors.New("OWNER_MUST_TRANSFER_FIRST", "Ownership must be transferred before this operation", http.StatusBadRequest)
)

// CreateOrganizationInput carries the attributes for a new organization.
type CreateOrganizationInput struct {
	Name        string
	Description string
	OwnerID     string
	MaxMembers  int
	MaxTeams    int
	Settings    datatypes.JSON
}

// UpdateOrganizationInput carries mutable organization attributes. Nil fields
// are left untouched.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	MaxMembers  *int
	MaxTeams    *int
	Settings    datatypes.JSON
}

// OrganizationService implements the organization half of the membership
// lifecycle: scope creation, member add/change/remove, and ownership transfer.
// Every mutation runs its guard checks and writes on one transaction handle.
type OrganizationService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, auditService *AuditService) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{db: db, auditService: auditService}, nil
}

// Create provisions an organization and seeds the creator as its owner. The
// organization row, owner membership and denormalized owner pointer are
// written in a single transaction.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("organization name is required")
	}
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, apperrors.NewBadRequest("organization owner is required")
	}

	maxMembers := input.MaxMembers
	if maxMembers <= 0 {
		maxMembers = models.DefaultOrgMaxMembers
	}
	maxTeams := input.MaxTeams
	if maxTeams <= 0 {
		maxTeams = models.DefaultOrgMaxTeams
	}

	org := &models.Organization{
		Name:        name,
		Slug:        slugify(name),
		Description: strings.TrimSpace(input.Description),
		MaxMembers:  maxMembers,
		MaxTeams:    maxTeams,
		IsActive:    true,
		OwnerID:     input.OwnerID,
		Settings:    input.Settings,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.First(&owner, "id = ?", input.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("organization service: load owner: %w", err)
		}
		if !owner.IsActive {
			return ErrUserInactive
		}

		if err := tx.Create(org).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewBadRequest("organization name already taken")
			}
			return fmt.Errorf("organization service: create organization: %w", err)
		}

		membership := models.OrganizationMembership{
			UserID:         owner.ID,
			OrganizationID: org.ID,
			Role:           roles.OrgOwner,
			JoinedAt:       time.Now().UTC(),
		}
		if err := tx.Create(&membership).Error; err != nil {
			return fmt.Errorf("organization service: create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("organization", "create_scope", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("organization", "create_scope", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &org.OwnerID,
		Action:   "organization.create",
		Resource: org.ID,
		Result:   "success",
	})

	return org, nil
}

// GetByID loads an organization by identifier.
func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// List returns a page of organizations ordered by name.
func (s *OrganizationService) List(ctx context.Context, page, perPage int) ([]models.Organization, int64, error) {
	ctx = ensureContext(ctx)

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("organization service: count organizations: %w", err)
	}

	var orgs []models.Organization
	if err := s.db.WithContext(ctx).
		Order("name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&orgs).Error; err != nil {
		return nil, 0, fmt.Errorf("organization service: list organizations: %w", err)
	}

	return orgs, total, nil
}

// ListForUser returns the organizations the user belongs to.
func (s *OrganizationService) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN organization_memberships om ON om.organization_id = organizations.id").
		Where("om.user_id = ?", userID).
		Order("organizations.name ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("organization service: list for user: %w", err)
	}
	return orgs, nil
}

// Update applies mutable organization attributes.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("organization name cannot be empty")
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
	if input.MaxTeams != nil {
		if *input.MaxTeams < 0 {
			return nil, apperrors.NewBadRequest("max_teams cannot be negative")
		}
		updates["max_teams"] = *input.MaxTeams
	}
	if input.Settings != nil {
		updates["settings"] = input.Settings
	}
	if len(updates) == 0 {
		return org, nil
	}

	if err := s.db.WithContext(ctx).Model(org).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("organization name already taken")
		}
		return nil, fmt.Errorf("organization service: update organization: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Deactivate marks an organization inactive. Membership rows are preserved.
func (s *OrganizationService) Deactivate(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("organization service: deactivate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrganizationNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "organization.deactivate",
		Resource: id,
		Result:   "success",
	})
	return nil
}

// ListMembers returns the organization's membership rows with user rows preloaded.
func (s *OrganizationService) ListMembers(ctx context.Context, orgID string, page, perPage int) ([]models.OrganizationMembership, int64, error) {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, orgID); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	base := s.db.WithContext(ctx).Model(&models.OrganizationMembership{}).
		Where("organization_id = ?", orgID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("organization service: count members: %w", err)
	}

	var memberships []models.OrganizationMembership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", orgID).
		Order("joined_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&memberships).Error; err != nil {
		return nil, 0, fmt.Errorf("organization service: list members: %w", err)
	}

	return memberships, total, nil
}

// GetMembership returns the membership row for the (user, org) pair.
func (s *OrganizationService) GetMembership(ctx context.Context, orgID, userID string) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	var membership models.OrganizationMembership
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get membership: %w", err)
	}
	return &membership, nil
}

// AddMember inserts a membership row after running the duplicate and capacity
// guards on the insert's own transaction. Adding someone directly as owner is
// rejected; ownership only moves through TransferOwnership.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, userID string, role roles.OrgRole) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown organization role")
	}
	if role == roles.OrgOwner {
		return nil, apperrors.NewBadRequest("members cannot be added as owner; use ownership transfer")
	}

	var membership *models.OrganizationMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, "id = ?", orgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationNotFound
			}
			return fmt.Errorf("organization service: load organization: %w", err)
		}
		if !org.IsActive {
			return ErrOrganizationNotFound
		}

		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("organization service: load user: %w", err)
		}
		if !user.IsActive {
			return ErrUserNotFound
		}

		if err := guard.CheckNotOrgMember(tx, userID, orgID); err != nil {
			return err
		}
		if err := guard.CheckOrgCapacity(tx, orgID, org.MaxMembers); err != nil {
			return err
		}

		row := models.OrganizationMembership{
			UserID:         userID,
			OrganizationID: orgID,
			Role:           role,
			JoinedAt:       time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueConstraintError(err) {
				return guard.ErrAlreadyMember
			}
			return fmt.Errorf("organization service: create membership: %w", err)
		}
		membership = &row
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("organization", "add", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("organization", "add", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "organization.member.add",
		Resource: orgID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return membership, nil
}

// ChangeMemberRole updates a member's role within the organization. Promoting
// to owner routes through TransferOwnership; demoting the current owner
// directly is rejected, the owner must transfer first.
func (s *OrganizationService) ChangeMemberRole(ctx context.Context, orgID, userID string, role roles.OrgRole) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown organization role")
	}
	if role == roles.OrgOwner {
		return s.TransferOwnership(ctx, orgID, userID)
	}

	var membership *models.OrganizationMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.OrganizationMembership
		err := tx.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("organization service: load membership: %w", err)
		}

		if row.Role == roles.OrgOwner {
			return ErrOwnerMustTransferFirst
		}

		if row.Role != role {
			if err := tx.Model(&row).Update("role", role).Error; err != nil {
				return fmt.Errorf("organization service: update role: %w", err)
			}
			row.Role = role
		}
		membership = &row
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("organization", "change_role", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("organization", "change_role", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "organization.member.change_role",
		Resource: orgID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return membership, nil
}

// TransferOwnership atomically moves the owner role to an existing member.
// The outgoing owner is demoted, the target promoted, and the denormalized
// owner pointer rewritten, all in one transaction guarded by the single-owner
// check.
func (s *OrganizationService) TransferOwnership(ctx context.Context, orgID, newOwnerID string) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	var membership *models.OrganizationMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, "id = ?", orgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrganizationNotFound
			}
			return fmt.Errorf("organization service: load organization: %w", err)
		}

		var target models.OrganizationMembership
		err := tx.Where("organization_id = ? AND user_id = ?", orgID, newOwnerID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("organization service: load target membership: %w", err)
		}
		if target.Role == roles.OrgOwner {
			membership = &target
			return nil
		}

		if err := tx.Model(&models.OrganizationMembership{}).
			Where("organization_id = ? AND role = ?", orgID, roles.OrgOwner).
			Update("role", roles.OrgOwnerDemotion).Error; err != nil {
			return fmt.Errorf("organization service: demote owner: %w", err)
		}

		if err := tx.Model(&target).Update("role", roles.OrgOwner).Error; err != nil {
			return fmt.Errorf("organization service: promote new owner: %w", err)
		}
		target.Role = roles.OrgOwner

		if err := guard.CheckSingleOrgOwner(tx, orgID, newOwnerID); err != nil {
			return err
		}

		if err := tx.Model(&org).Update("owner_id", newOwnerID).Error; err != nil {
			return fmt.Errorf("organization service: update owner pointer: %w", err)
		}

		membership = &target
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("organization", "transfer_ownership", "failure").Inc()
		return nil, err
	}

	metrics.MembershipTransitions.WithLabelValues("organization", "transfer_ownership", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &newOwnerID,
		Action:   "organization.transfer_ownership",
		Resource: orgID,
		Result:   "success",
	})

	return membership, nil
}

// RemoveMember deletes a membership row. The owner can never be removed;
// ownership must move first. Removing an absent member reports MEMBER_NOT_FOUND
// so retried removals surface as no-ops to the caller.
func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, userID string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.OrganizationMembership
		err := tx.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("organization service: load membership: %w", err)
		}

		if row.Role == roles.OrgOwner {
			return ErrCannotRemoveOwner
		}

		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("organization service: delete membership: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.MembershipTransitions.WithLabelValues("organization", "remove", "failure").Inc()
		return err
	}

	metrics.MembershipTransitions.WithLabelValues("organization", "remove", "success").Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "organization.member.remove",
		Resource: orgID,
		Result:   "success",
	})

	return nil
}

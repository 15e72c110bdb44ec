package guard

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
	apperrors "github.com/harborlane/harborlane/pkg/errors"
)

// Pre-write invariant checks for membership mutations. Every function takes
// the transaction handle of the write that follows, so the read it performs
// and that write share one transaction boundary. The composite uniqueness and
// single-owner indexes remain the storage-level backstop.

var (
	// ErrAlreadyMember signals a duplicate (user, scope) membership.
	ErrAlreadyMember = apperrors.New("ALREADY_MEMBER", "User is already a member of this scope", http.StatusBadRequest)
	// ErrCapacityExceeded signals the scope has reached its member ceiling.
	ErrCapacityExceeded = apperrors.New("CAPACITY_EXCEEDED", "Member capacity for this scope has been reached", http.StatusBadRequest)
	// ErrOwnerConflict signals the single-owner invariant would be violated.
	ErrOwnerConflict = apperrors.New("OWNER_CONFLICT", "Scope already has an owner", http.StatusConflict)
)

// CheckCapacity fails when the current member count has reached the ceiling.
// A ceiling of zero or below means unlimited.
func CheckCapacity(currentMembers int64, maxMembers int) error {
	if maxMembers <= 0 {
		return nil
	}
	if currentMembers >= int64(maxMembers) {
		return ErrCapacityExceeded
	}
	return nil
}

// CheckOrgCapacity counts current organization members inside tx and applies the ceiling.
func CheckOrgCapacity(tx *gorm.DB, orgID string, maxMembers int) error {
	var count int64
	if err := tx.Model(&models.OrganizationMembership{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: count org members: %w", err)
	}
	return CheckCapacity(count, maxMembers)
}

// CheckTeamCapacity counts current team members inside tx and applies the ceiling.
func CheckTeamCapacity(tx *gorm.DB, teamID string, maxMembers int) error {
	var count int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("team_id = ?", teamID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: count team members: %w", err)
	}
	return CheckCapacity(count, maxMembers)
}

// CheckNotOrgMember fails when a membership row already exists for the pair.
func CheckNotOrgMember(tx *gorm.DB, userID, orgID string) error {
	var count int64
	if err := tx.Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: check org membership: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}
	return nil
}

// CheckNotTeamMember fails when a membership row already exists for the pair.
func CheckNotTeamMember(tx *gorm.DB, userID, teamID string) error {
	var count int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: check team membership: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}
	return nil
}

// CheckSingleOrgOwner verifies that no owner membership exists in the
// organization besides the proposed owner. Used inside the ownership transfer
// transaction after the outgoing owner has been demoted.
func CheckSingleOrgOwner(tx *gorm.DB, orgID, proposedOwnerID string) error {
	var count int64
	if err := tx.Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND role = ? AND user_id <> ?", orgID, roles.OrgOwner, proposedOwnerID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: check org owner: %w", err)
	}
	if count > 0 {
		return ErrOwnerConflict
	}
	return nil
}

// CheckSingleTeamOwner verifies that no owner membership exists in the team
// besides the proposed owner.
func CheckSingleTeamOwner(tx *gorm.DB, teamID, proposedOwnerID string) error {
	var count int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("team_id = ? AND role = ? AND user_id <> ?", teamID, roles.TeamOwner, proposedOwnerID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("guard: check team owner: %w", err)
	}
	if count > 0 {
		return ErrOwnerConflict
	}
	return nil
}

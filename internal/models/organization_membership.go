package models

import (
	"time"

	"github.com/harborlane/harborlane/internal/roles"
)

// OrganizationMembership links a user to an organization with a role.
// The composite unique index guarantees at most one row per (user, org) pair.
type OrganizationMembership struct {
	BaseModel

	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_org_memberships_user_org" json:"user_id"`
	OrganizationID string `gorm:"type:uuid;not null;uniqueIndex:idx_org_memberships_user_org;index" json:"organization_id"`

	Role     roles.OrgRole `gorm:"not null;index" json:"role"`
	JoinedAt time.Time     `gorm:"not null" json:"joined_at"`

	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

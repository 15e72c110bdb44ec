package models

import "gorm.io/datatypes"

// DefaultTeamMaxMembers caps team membership when no explicit ceiling is set.
const DefaultTeamMaxMembers = 25

// Team is a scoped grouping of users, optionally nested under an organization.
type Team struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`

	MaxMembers int  `gorm:"not null;default:25" json:"max_members"`
	IsActive   bool `gorm:"default:true" json:"is_active"`

	OrganizationID *string       `gorm:"type:uuid;index" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`

	// OwnerID mirrors the single membership row holding the owner role.
	OwnerID string `gorm:"type:uuid;not null" json:"owner_id"`

	// Settings stores team preferences (routing defaults, notification rules) as JSON.
	Settings datatypes.JSON `json:"settings"`

	Memberships []TeamMembership `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
}

package models

import "gorm.io/datatypes"

// DefaultOrgMaxMembers caps organization membership when no explicit ceiling is set.
const DefaultOrgMaxMembers = 50

// DefaultOrgMaxTeams caps the number of teams an organization may own.
const DefaultOrgMaxTeams = 10

// Organization is a tenant boundary owning teams and membership rows.
type Organization struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`

	MaxMembers int  `gorm:"not null;default:50" json:"max_members"`
	MaxTeams   int  `gorm:"not null;default:10" json:"max_teams"`
	IsActive   bool `gorm:"default:true" json:"is_active"`

	// OwnerID mirrors the single membership row holding the owner role.
	// It is written only inside the create/transfer/cascade transactions.
	OwnerID string `gorm:"type:uuid;not null" json:"owner_id"`

	// Settings stores tenant preferences (carrier defaults, SLA targets) as JSON.
	Settings datatypes.JSON `json:"settings"`

	Memberships []OrganizationMembership `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	Teams       []Team                   `gorm:"foreignKey:OrganizationID" json:"teams,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/roles"
)

// User describes platform users and their relationships to organizations and teams.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Role is the platform-wide role (viewer|member|team_leader|admin).
	Role     roles.GlobalRole `gorm:"not null;default:member" json:"role"`
	IsActive bool             `gorm:"default:true" json:"is_active"`

	OrgMemberships  []OrganizationMembership `gorm:"foreignKey:UserID" json:"org_memberships,omitempty"`
	TeamMemberships []TeamMembership         `gorm:"foreignKey:UserID" json:"team_memberships,omitempty"`
	Sessions        []Session                `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = roles.GlobalMember
	}
	return nil
}

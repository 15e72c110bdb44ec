package models

import (
	"time"

	"github.com/harborlane/harborlane/internal/roles"
)

// TeamMembership links a user to a team with a role.
// The composite unique index guarantees at most one row per (user, team) pair.
type TeamMembership struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_memberships_user_team" json:"user_id"`
	TeamID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_memberships_user_team;index" json:"team_id"`

	Role     roles.TeamRole `gorm:"not null;index" json:"role"`
	JoinedAt time.Time      `gorm:"not null" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
}

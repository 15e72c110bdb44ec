package models

import "time"

// Invite scope types.
const (
	InviteScopeOrganization = "organization"
	InviteScopeTeam         = "team"
)

// UserInvite represents an invitation sent to a prospective member of a scope.
type UserInvite struct {
	BaseModel

	Email     string `gorm:"not null;index" json:"email"`
	TokenHash string `gorm:"not null;uniqueIndex" json:"-"`
	InvitedBy string `gorm:"type:uuid" json:"invited_by"`

	// ScopeType and ScopeID identify the organization or team the invite targets.
	ScopeType string `gorm:"not null" json:"scope_type"`
	ScopeID   string `gorm:"type:uuid;not null;index" json:"scope_id"`
	// Role is the scope role granted when the invite is accepted.
	Role string `gorm:"not null" json:"role"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

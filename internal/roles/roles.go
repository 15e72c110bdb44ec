package roles

// Three independent role spaces govern access: the platform-wide global
// role, the organization role, and the team role. Each is a four-level
// total order compared only within its own space.

// GlobalRole is a user's platform-wide role.
type GlobalRole string

// Global role levels, lowest to highest.
const (
	GlobalViewer     GlobalRole = "viewer"
	GlobalMember     GlobalRole = "member"
	GlobalTeamLeader GlobalRole = "team_leader"
	GlobalAdmin      GlobalRole = "admin"
)

// OrgRole is a user's role within a single organization.
type OrgRole string

// Organization role levels, lowest to highest.
const (
	OrgGuest  OrgRole = "guest"
	OrgMember OrgRole = "member"
	OrgAdmin  OrgRole = "admin"
	OrgOwner  OrgRole = "owner"
)

// TeamRole is a user's role within a single team.
type TeamRole string

// Team role levels, lowest to highest.
const (
	TeamViewer TeamRole = "viewer"
	TeamMember TeamRole = "member"
	TeamLeader TeamRole = "leader"
	TeamOwner  TeamRole = "owner"
)

var globalLevels = map[GlobalRole]int{
	GlobalViewer:     1,
	GlobalMember:     2,
	GlobalTeamLeader: 3,
	GlobalAdmin:      4,
}

var orgLevels = map[OrgRole]int{
	OrgGuest:  1,
	OrgMember: 2,
	OrgAdmin:  3,
	OrgOwner:  4,
}

var teamLevels = map[TeamRole]int{
	TeamViewer: 1,
	TeamMember: 2,
	TeamLeader: 3,
	TeamOwner:  4,
}

// Level returns the numeric rank of the role, or 0 for unknown values.
func (r GlobalRole) Level() int { return globalLevels[r] }

// Valid reports whether the role is one of the defined global roles.
func (r GlobalRole) Valid() bool { return r.Level() > 0 }

// AtLeast reports whether the role ranks at or above the required role.
func (r GlobalRole) AtLeast(required GlobalRole) bool {
	return r.Valid() && required.Valid() && r.Level() >= required.Level()
}

// Level returns the numeric rank of the role, or 0 for unknown values.
func (r OrgRole) Level() int { return orgLevels[r] }

// Valid reports whether the role is one of the defined organization roles.
func (r OrgRole) Valid() bool { return r.Level() > 0 }

// AtLeast reports whether the role ranks at or above the required role.
func (r OrgRole) AtLeast(required OrgRole) bool {
	return r.Valid() && required.Valid() && r.Level() >= required.Level()
}

// Level returns the numeric rank of the role, or 0 for unknown values.
func (r TeamRole) Level() int { return teamLevels[r] }

// Valid reports whether the role is one of the defined team roles.
func (r TeamRole) Valid() bool { return r.Level() > 0 }

// AtLeast reports whether the role ranks at or above the required role.
func (r TeamRole) AtLeast(required TeamRole) bool {
	return r.Valid() && required.Valid() && r.Level() >= required.Level()
}

// ParseGlobalRole normalises a raw string into a GlobalRole.
func ParseGlobalRole(raw string) (GlobalRole, bool) {
	role := GlobalRole(raw)
	return role, role.Valid()
}

// ParseOrgRole normalises a raw string into an OrgRole.
func ParseOrgRole(raw string) (OrgRole, bool) {
	role := OrgRole(raw)
	return role, role.Valid()
}

// ParseTeamRole normalises a raw string into a TeamRole.
func ParseTeamRole(raw string) (TeamRole, bool) {
	role := TeamRole(raw)
	return role, role.Valid()
}

// IsAdmin reports whether the global role carries platform administration rights.
func IsAdmin(role GlobalRole) bool { return role == GlobalAdmin }

// IsTeamLeaderOrAbove reports whether the global role is TeamLeader or higher.
func IsTeamLeaderOrAbove(role GlobalRole) bool { return role.AtLeast(GlobalTeamLeader) }

// CanManageTeam reports whether the team role may mutate team membership.
func CanManageTeam(role TeamRole) bool { return role.AtLeast(TeamLeader) }

// CanAccessAdminConsole reports whether the global role may use admin endpoints.
func CanAccessAdminConsole(role GlobalRole) bool { return IsAdmin(role) }

// OrgOwnerDemotion is the role a demoted organization owner receives during transfer.
const OrgOwnerDemotion = OrgAdmin

// TeamOwnerDemotion is the role a demoted team owner receives during transfer.
const TeamOwnerDemotion = TeamLeader

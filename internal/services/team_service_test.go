package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborlane/harborlane/internal/guard"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

func TestTeamCreatePromotesOwnerGlobalRole(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	require.Equal(t, roles.GlobalMember, owner.Role)

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)
	require.Equal(t, "dockside-crew", team.Slug)
	require.Equal(t, owner.ID, team.OwnerID)

	membership, err := ts.teams.GetMembership(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.TeamOwner, membership.Role)

	refreshed, err := ts.users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalTeamLeader, refreshed.Role)
}

func TestTeamCreateEnforcesOrgTeamCeiling(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{
		Name:     "Acme Freight",
		OwnerID:  owner.ID,
		MaxTeams: 1,
	})
	require.NoError(t, err)

	_, err = ts.teams.Create(context.Background(), CreateTeamInput{
		Name: "First Crew", OwnerID: owner.ID, OrganizationID: &org.ID,
	})
	require.NoError(t, err)

	_, err = ts.teams.Create(context.Background(), CreateTeamInput{
		Name: "Second Crew", OwnerID: owner.ID, OrganizationID: &org.ID,
	})
	require.ErrorIs(t, err, guard.ErrCapacityExceeded)
}

func TestTeamCreateRequiresOrgMembership(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	outsider := ts.createUser(t, "outsider")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.teams.Create(context.Background(), CreateTeamInput{
		Name: "Ghost Crew", OwnerID: outsider.ID, OrganizationID: &org.ID,
	})
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestTeamAddMemberEnforcesCapacityAndDuplicates(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{
		Name: "Dockside Crew", OwnerID: owner.ID, MaxMembers: 2,
	})
	require.NoError(t, err)

	second := ts.createUser(t, "picker")
	_, err = ts.teams.AddMember(context.Background(), team.ID, second.ID, roles.TeamMember)
	require.NoError(t, err)

	_, err = ts.teams.AddMember(context.Background(), team.ID, second.ID, roles.TeamViewer)
	require.ErrorIs(t, err, guard.ErrAlreadyMember)

	third := ts.createUser(t, "latecomer")
	_, err = ts.teams.AddMember(context.Background(), team.ID, third.ID, roles.TeamMember)
	require.ErrorIs(t, err, guard.ErrCapacityExceeded)
}

func TestTeamAddLeaderLiftsGlobalRole(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	lead := ts.createUser(t, "shift-lead")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.teams.AddMember(context.Background(), team.ID, lead.ID, roles.TeamLeader)
	require.NoError(t, err)

	refreshed, err := ts.users.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalTeamLeader, refreshed.Role)
}

func TestTeamOwnerLeaveBlockedWhileMembersRemain(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	mate := ts.createUser(t, "picker")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)
	_, err = ts.teams.AddMember(context.Background(), team.ID, mate.ID, roles.TeamMember)
	require.NoError(t, err)

	err = ts.teams.Leave(context.Background(), team.ID, owner.ID)
	require.ErrorIs(t, err, ErrOwnerMustTransferFirst)

	// Nothing changed: team intact, both memberships present.
	_, err = ts.teams.GetByID(context.Background(), team.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, ts.membershipCount(t, &models.TeamMembership{}, "team_id = ?", team.ID))
}

func TestTeamSoleOwnerLeaveDissolvesTeam(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)

	promoted, err := ts.users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalTeamLeader, promoted.Role)

	require.NoError(t, ts.teams.Leave(context.Background(), team.ID, owner.ID))

	_, err = ts.teams.GetByID(context.Background(), team.ID)
	require.ErrorIs(t, err, ErrTeamNotFound)
	require.EqualValues(t, 0, ts.membershipCount(t, &models.TeamMembership{}, "team_id = ?", team.ID))

	// With no leadership left, the derived global role settles back at member.
	demoted, err := ts.users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalMember, demoted.Role)
}

func TestTeamTransferOwnershipRecomputesBothGlobalRoles(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	successor := ts.createUser(t, "picker")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)
	_, err = ts.teams.AddMember(context.Background(), team.ID, successor.ID, roles.TeamMember)
	require.NoError(t, err)

	promoted, err := ts.teams.TransferOwnership(context.Background(), team.ID, successor.ID)
	require.NoError(t, err)
	require.Equal(t, roles.TeamOwner, promoted.Role)

	oldOwner, err := ts.teams.GetMembership(context.Background(), team.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.TeamOwnerDemotion, oldOwner.Role)

	refreshed, err := ts.teams.GetByID(context.Background(), team.ID)
	require.NoError(t, err)
	require.Equal(t, successor.ID, refreshed.OwnerID)

	// Demotion lands on leader, which still derives a team_leader global role.
	oldOwnerUser, err := ts.users.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalTeamLeader, oldOwnerUser.Role)

	newOwnerUser, err := ts.users.GetByID(context.Background(), successor.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalTeamLeader, newOwnerUser.Role)

	require.EqualValues(t, 1, ts.membershipCount(t, &models.TeamMembership{},
		"team_id = ? AND role = ?", team.ID, roles.TeamOwner))
}

func TestTeamRemoveMemberRecomputesGlobalRole(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	lead := ts.createUser(t, "shift-lead")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)
	_, err = ts.teams.AddMember(context.Background(), team.ID, lead.ID, roles.TeamLeader)
	require.NoError(t, err)

	require.NoError(t, ts.teams.RemoveMember(context.Background(), team.ID, lead.ID))

	refreshed, err := ts.users.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalMember, refreshed.Role)
}

func TestTeamRemoveOwnerBlocked(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)

	err = ts.teams.RemoveMember(context.Background(), team.ID, owner.ID)
	require.ErrorIs(t, err, ErrCannotRemoveOwner)
}

func TestTeamAdminGlobalRoleIsSticky(t *testing.T) {
	ts := newTestServices(t)
	admin := ts.createUser(t, "platform-admin")
	_, err := ts.users.SetGlobalRole(context.Background(), admin.ID, roles.GlobalAdmin)
	require.NoError(t, err)

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Admin Crew", OwnerID: admin.ID})
	require.NoError(t, err)
	require.NoError(t, ts.teams.Leave(context.Background(), team.ID, admin.ID))

	refreshed, err := ts.users.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Equal(t, roles.GlobalAdmin, refreshed.Role)
}

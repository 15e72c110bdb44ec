package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborlane/harborlane/internal/guard"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

func TestInviteCreateAndAccept(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	invite, token, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     joiner.Email,
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEqual(t, token, invite.TokenHash)

	accepted, err := ts.invites.Accept(context.Background(), token, joiner.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.AcceptedAt)

	membership, err := ts.orgs.GetMembership(context.Background(), org.ID, joiner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgMember, membership.Role)

	// A redeemed token cannot be replayed.
	_, err = ts.invites.Accept(context.Background(), token, joiner.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteAcceptRejectsExpired(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	invite, token, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     joiner.Email,
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)

	require.NoError(t, ts.db.Model(invite).Update("expires_at", pastTime()).Error)

	_, err = ts.invites.Accept(context.Background(), token, joiner.ID)
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestInviteAcceptForExistingMember(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, token, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     joiner.Email,
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)

	// The user joins through another path before redeeming the invite.
	_, err = ts.orgs.AddMember(context.Background(), org.ID, joiner.ID, roles.OrgMember)
	require.NoError(t, err)

	_, err = ts.invites.Accept(context.Background(), token, joiner.ID)
	require.ErrorIs(t, err, guard.ErrAlreadyMember)

	require.EqualValues(t, 2, ts.membershipCount(t, &models.OrganizationMembership{}, "organization_id = ?", org.ID))
}

func TestInviteAcceptRequiresMatchingEmail(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")
	impostor := ts.createUser(t, "impostor")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, token, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     joiner.Email,
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)

	_, err = ts.invites.Accept(context.Background(), token, impostor.ID)
	require.Error(t, err)
}

func TestInviteCreateRejectsOwnerRole(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, _, err = ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     "new-owner@example.com",
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgOwner),
	})
	require.Error(t, err)
}

func TestInviteTeamScope(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "forklift")
	joiner := ts.createUser(t, "picker")

	team, err := ts.teams.Create(context.Background(), CreateTeamInput{Name: "Dockside Crew", OwnerID: owner.ID})
	require.NoError(t, err)

	_, token, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     joiner.Email,
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeTeam,
		ScopeID:   team.ID,
		Role:      string(roles.TeamMember),
	})
	require.NoError(t, err)

	_, err = ts.invites.Accept(context.Background(), token, joiner.ID)
	require.NoError(t, err)

	membership, err := ts.teams.GetMembership(context.Background(), team.ID, joiner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.TeamMember, membership.Role)
}

func TestInviteCleanupExpired(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	stale, _, err := ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     "stale@example.com",
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)
	require.NoError(t, ts.db.Model(stale).Update("expires_at", pastTime()).Error)

	_, _, err = ts.invites.Create(context.Background(), CreateInviteInput{
		Email:     "fresh@example.com",
		InvitedBy: owner.ID,
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   org.ID,
		Role:      string(roles.OrgMember),
	})
	require.NoError(t, err)

	removed, err := ts.invites.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	remaining, err := ts.invites.ListForScope(context.Background(), models.InviteScopeOrganization, org.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "fresh@example.com", remaining[0].Email)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborlane/harborlane/internal/guard"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

func TestOrganizationCreateSeedsOwnerMembership(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{
		Name:    "Acme Freight",
		OwnerID: owner.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "acme-freight", org.Slug)
	require.Equal(t, owner.ID, org.OwnerID)
	require.Equal(t, models.DefaultOrgMaxMembers, org.MaxMembers)

	membership, err := ts.orgs.GetMembership(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwner, membership.Role)
}

func TestOrganizationAddMemberRejectsDuplicate(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, joiner.ID, roles.OrgMember)
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, joiner.ID, roles.OrgAdmin)
	require.ErrorIs(t, err, guard.ErrAlreadyMember)

	require.EqualValues(t, 2, ts.membershipCount(t, &models.OrganizationMembership{}, "organization_id = ?", org.ID))
}

func TestOrganizationAddMemberEnforcesCapacity(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{
		Name:       "Tiny Dispatch",
		OwnerID:    owner.ID,
		MaxMembers: 2,
	})
	require.NoError(t, err)

	second := ts.createUser(t, "dispatcher")
	_, err = ts.orgs.AddMember(context.Background(), org.ID, second.ID, roles.OrgMember)
	require.NoError(t, err)

	third := ts.createUser(t, "latecomer")
	_, err = ts.orgs.AddMember(context.Background(), org.ID, third.ID, roles.OrgMember)
	require.ErrorIs(t, err, guard.ErrCapacityExceeded)

	require.EqualValues(t, 2, ts.membershipCount(t, &models.OrganizationMembership{}, "organization_id = ?", org.ID))
}

func TestOrganizationAddMemberRejectsOwnerRole(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, joiner.ID, roles.OrgOwner)
	require.Error(t, err)
}

func TestOrganizationAddMemberUnknownUser(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, "00000000-0000-0000-0000-000000000000", roles.OrgMember)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestOrganizationChangeMemberRoleBlocksOwnerDemotion(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.ChangeMemberRole(context.Background(), org.ID, owner.ID, roles.OrgMember)
	require.ErrorIs(t, err, ErrOwnerMustTransferFirst)

	membership, err := ts.orgs.GetMembership(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwner, membership.Role)
}

func TestOrganizationTransferOwnershipIsAtomic(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	successor := ts.createUser(t, "successor")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, successor.ID, roles.OrgAdmin)
	require.NoError(t, err)

	promoted, err := ts.orgs.TransferOwnership(context.Background(), org.ID, successor.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwner, promoted.Role)

	demoted, err := ts.orgs.GetMembership(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwnerDemotion, demoted.Role)

	refreshed, err := ts.orgs.GetByID(context.Background(), org.ID)
	require.NoError(t, err)
	require.Equal(t, successor.ID, refreshed.OwnerID)

	require.EqualValues(t, 1, ts.membershipCount(t, &models.OrganizationMembership{},
		"organization_id = ? AND role = ?", org.ID, roles.OrgOwner))
}

func TestOrganizationTransferOwnershipToNonMember(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	outsider := ts.createUser(t, "outsider")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.TransferOwnership(context.Background(), org.ID, outsider.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)

	// Failed transfer leaves the current owner intact.
	membership, err := ts.orgs.GetMembership(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwner, membership.Role)
}

func TestOrganizationChangeRoleToOwnerRoutesThroughTransfer(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	successor := ts.createUser(t, "successor")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, successor.ID, roles.OrgMember)
	require.NoError(t, err)

	promoted, err := ts.orgs.ChangeMemberRole(context.Background(), org.ID, successor.ID, roles.OrgOwner)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwner, promoted.Role)

	demoted, err := ts.orgs.GetMembership(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, roles.OrgOwnerDemotion, demoted.Role)
}

func TestOrganizationRemoveMemberBlocksOwner(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	err = ts.orgs.RemoveMember(context.Background(), org.ID, owner.ID)
	require.ErrorIs(t, err, ErrCannotRemoveOwner)
}

func TestOrganizationRemoveMemberTwiceReportsNotFound(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	member := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	_, err = ts.orgs.AddMember(context.Background(), org.ID, member.ID, roles.OrgMember)
	require.NoError(t, err)

	require.NoError(t, ts.orgs.RemoveMember(context.Background(), org.ID, member.ID))
	err = ts.orgs.RemoveMember(context.Background(), org.ID, member.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestOrganizationDeactivateBlocksNewMembers(t *testing.T) {
	ts := newTestServices(t)
	owner := ts.createUser(t, "freight-owner")
	joiner := ts.createUser(t, "dockhand")

	org, err := ts.orgs.Create(context.Background(), CreateOrganizationInput{Name: "Acme Freight", OwnerID: owner.ID})
	require.NoError(t, err)

	require.NoError(t, ts.orgs.Deactivate(context.Background(), org.ID))

	_, err = ts.orgs.AddMember(context.Background(), org.ID, joiner.ID, roles.OrgMember)
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

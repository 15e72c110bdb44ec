package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

func openGuardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMembership{},
		&models.Team{},
		&models.TeamMembership{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestCheckCapacity(t *testing.T) {
	require.NoError(t, CheckCapacity(1, 2))
	require.ErrorIs(t, CheckCapacity(2, 2), ErrCapacityExceeded)
	require.ErrorIs(t, CheckCapacity(3, 2), ErrCapacityExceeded)
	// Zero ceiling means unlimited.
	require.NoError(t, CheckCapacity(1000, 0))
}

func TestCheckOrgCapacityCountsRows(t *testing.T) {
	db := openGuardTestDB(t)
	owner := seedUser(t, db, "owner")
	member := seedUser(t, db, "member")

	org := models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID, MaxMembers: 2}
	require.NoError(t, db.Create(&org).Error)

	require.NoError(t, db.Create(&models.OrganizationMembership{
		UserID: owner.ID, OrganizationID: org.ID, Role: roles.OrgOwner, JoinedAt: time.Now(),
	}).Error)
	require.NoError(t, CheckOrgCapacity(db, org.ID, org.MaxMembers))

	require.NoError(t, db.Create(&models.OrganizationMembership{
		UserID: member.ID, OrganizationID: org.ID, Role: roles.OrgMember, JoinedAt: time.Now(),
	}).Error)
	require.ErrorIs(t, CheckOrgCapacity(db, org.ID, org.MaxMembers), ErrCapacityExceeded)
}

func TestCheckNotOrgMember(t *testing.T) {
	db := openGuardTestDB(t)
	owner := seedUser(t, db, "owner")

	org := models.Organization{Name: "Acme", Slug: "acme", OwnerID: owner.ID}
	require.NoError(t, db.Create(&org).Error)

	require.NoError(t, CheckNotOrgMember(db, owner.ID, org.ID))

	require.NoError(t, db.Create(&models.OrganizationMembership{
		UserID: owner.ID, OrganizationID: org.ID, Role: roles.OrgOwner, JoinedAt: time.Now(),
	}).Error)
	require.ErrorIs(t, CheckNotOrgMember(db, owner.ID, org.ID), ErrAlreadyMember)
}

func TestCheckSingleTeamOwner(t *testing.T) {
	db := openGuardTestDB(t)
	owner := seedUser(t, db, "owner")
	successor := seedUser(t, db, "successor")

	team := models.Team{Name: "Dockside", Slug: "dockside", OwnerID: owner.ID}
	require.NoError(t, db.Create(&team).Error)

	require.NoError(t, db.Create(&models.TeamMembership{
		UserID: owner.ID, TeamID: team.ID, Role: roles.TeamOwner, JoinedAt: time.Now(),
	}).Error)

	// Existing owner is a conflict for anyone else.
	require.ErrorIs(t, CheckSingleTeamOwner(db, team.ID, successor.ID), ErrOwnerConflict)
	// The current owner is never in conflict with itself.
	require.NoError(t, CheckSingleTeamOwner(db, team.ID, owner.ID))
}

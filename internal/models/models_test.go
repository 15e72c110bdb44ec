package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/roles"
)

func openModelsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&User{},
		&Organization{},
		&OrganizationMembership{},
		&Team{},
		&TeamMembership{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestBeforeCreateGeneratesIDs(t *testing.T) {
	db := openModelsTestDB(t)

	user := User{Username: "dockhand", Email: "dockhand@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NotEmpty(t, user.ID)
	require.Equal(t, roles.GlobalMember, user.Role)

	org := Organization{Name: "Acme Freight", Slug: "acme-freight", OwnerID: user.ID, MaxMembers: 50, MaxTeams: 10}
	require.NoError(t, db.Create(&org).Error)
	require.NotEmpty(t, org.ID)
}

func TestOrganizationMembershipUniquePerUserAndOrg(t *testing.T) {
	db := openModelsTestDB(t)

	user := User{Username: "dockhand", Email: "dockhand@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	org := Organization{Name: "Acme Freight", Slug: "acme-freight", OwnerID: user.ID}
	require.NoError(t, db.Create(&org).Error)

	first := OrganizationMembership{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           roles.OrgOwner,
		JoinedAt:       time.Now(),
	}
	require.NoError(t, db.Create(&first).Error)

	duplicate := OrganizationMembership{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           roles.OrgMember,
		JoinedAt:       time.Now(),
	}
	require.Error(t, db.Create(&duplicate).Error)
}

func TestTeamMembershipUniquePerUserAndTeam(t *testing.T) {
	db := openModelsTestDB(t)

	user := User{Username: "dockhand", Email: "dockhand@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	team := Team{Name: "Dockside", Slug: "dockside", OwnerID: user.ID}
	require.NoError(t, db.Create(&team).Error)

	first := TeamMembership{UserID: user.ID, TeamID: team.ID, Role: roles.TeamOwner, JoinedAt: time.Now()}
	require.NoError(t, db.Create(&first).Error)

	duplicate := TeamMembership{UserID: user.ID, TeamID: team.ID, Role: roles.TeamMember, JoinedAt: time.Now()}
	require.Error(t, db.Create(&duplicate).Error)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/database"
	"github.com/harborlane/harborlane/internal/models"
)

func openServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

type testServices struct {
	db      *gorm.DB
	users   *UserService
	orgs    *OrganizationService
	teams   *TeamService
	invites *InviteService
	audit   *AuditService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := openServicesTestDB(t)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	users, err := NewUserService(db, audit)
	require.NoError(t, err)
	orgs, err := NewOrganizationService(db, audit)
	require.NoError(t, err)
	teams, err := NewTeamService(db, audit)
	require.NoError(t, err)
	invites, err := NewInviteService(db, orgs, teams, nil, "https://app.example.com", audit)
	require.NoError(t, err)

	return &testServices{db: db, users: users, orgs: orgs, teams: teams, invites: invites, audit: audit}
}

func (ts *testServices) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := ts.users.Register(context.Background(), RegisterUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "sturdy-password",
	})
	require.NoError(t, err)
	return user
}

func (ts *testServices) membershipCount(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()

	var count int64
	require.NoError(t, ts.db.Model(model).Where(where, args...).Count(&count).Error)
	return count
}

func pastTime() time.Time {
	return time.Now().UTC().Add(-time.Hour)
}

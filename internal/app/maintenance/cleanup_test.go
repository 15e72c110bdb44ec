package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/harborlane/harborlane/internal/auth"
	"github.com/harborlane/harborlane/internal/database"
	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/services"
)

func openMaintenanceTestDB(t *testing.T) *gorm.DB {
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

func TestRunOnceSweepsExpiredState(t *testing.T) {
	db := openMaintenanceTestDB(t)

	user := models.User{Username: "dockhand", Email: "dockhand@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwt, iauth.SessionConfig{})
	require.NoError(t, err)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	orgs, err := services.NewOrganizationService(db, audit)
	require.NoError(t, err)
	teams, err := services.NewTeamService(db, audit)
	require.NoError(t, err)
	invites, err := services.NewInviteService(db, orgs, teams, nil, "https://app.example.com", audit)
	require.NoError(t, err)

	// Expired session.
	expired := models.Session{
		UserID:       user.ID,
		RefreshToken: "stale-token",
		ExpiresAt:    time.Now().Add(-time.Hour),
		LastUsedAt:   time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)

	// Expired invite.
	invite := models.UserInvite{
		Email:     "stale@example.com",
		TokenHash: "stale-hash",
		ScopeType: models.InviteScopeOrganization,
		ScopeID:   "11111111-1111-1111-1111-111111111111",
		Role:      "member",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&invite).Error)

	// Old audit entry.
	require.NoError(t, db.Create(&models.AuditLog{Action: "old", Result: "success"}).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", "old").
		Update("created_at", time.Now().Add(-200*24*time.Hour)).Error)

	cleaner := NewCleaner(sessions, invites, audit, WithAuditRetention(90*24*time.Hour))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount, inviteCount, auditCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.NoError(t, db.Model(&models.UserInvite{}).Count(&inviteCount).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)

	require.EqualValues(t, 0, sessionCount)
	require.EqualValues(t, 0, inviteCount)
	require.EqualValues(t, 0, auditCount)
}

func TestCleanerStartWithoutDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil, nil)
	require.NoError(t, cleaner.Start())
}

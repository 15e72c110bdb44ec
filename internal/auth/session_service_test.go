package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
)

func openSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newSessionService(t *testing.T, db *gorm.DB, clock func() time.Time) *SessionService {
	t.Helper()

	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Clock: clock})
	require.NoError(t, err)

	svc, err := NewSessionService(db, jwtSvc, SessionConfig{Clock: clock})
	require.NoError(t, err)
	return svc
}

func seedSessionUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Username: "dockhand", Email: "dockhand@example.com", Password: "x", Role: roles.GlobalMember}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestCreateAndRefreshSession(t *testing.T) {
	db := openSessionTestDB(t)
	svc := newSessionService(t, db, time.Now)
	user := seedSessionUser(t, db)

	pair, session, err := svc.CreateSession(user, SessionMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotNil(t, session)

	rotated, refreshed, err := svc.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.Equal(t, session.ID, refreshed.ID)

	// The old token is dead after rotation.
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshSessionRejectsExpired(t *testing.T) {
	db := openSessionTestDB(t)
	current := time.Now()
	svc := newSessionService(t, db, func() time.Time { return current })
	user := seedSessionUser(t, db)

	pair, _, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(DefaultRefreshTokenTTL + time.Hour)
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRevokeSessionBlocksRefresh(t *testing.T) {
	db := openSessionTestDB(t)
	svc := newSessionService(t, db, time.Now)
	user := seedSessionUser(t, db)

	pair, session, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))
	require.ErrorIs(t, svc.RevokeSession(session.ID), ErrSessionNotFound)

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestCleanupExpiredRemovesDeadSessions(t *testing.T) {
	db := openSessionTestDB(t)
	current := time.Now()
	svc := newSessionService(t, db, func() time.Time { return current })
	user := seedSessionUser(t, db)

	_, stale, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, svc.RevokeSession(stale.ID))

	_, _, err = svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

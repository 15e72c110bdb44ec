package database

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
	"github.com/harborlane/harborlane/pkg/crypto"
	"github.com/harborlane/harborlane/pkg/logger"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMembership{},
		&models.Team{},
		&models.TeamMembership{},
		&models.UserInvite{},
		&models.Session{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	return createOwnerIndexes(db)
}

// createOwnerIndexes installs partial unique indexes guaranteeing at most one
// owner membership per scope. MySQL has no partial indexes; there the
// transactional guard is the only enforcement.
func createOwnerIndexes(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		return nil
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_org_memberships_single_owner
			ON organization_memberships (organization_id) WHERE role = 'owner'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_memberships_single_owner
			ON team_memberships (team_id) WHERE role = 'owner'`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create owner index: %w", err)
		}
	}
	return nil
}

// SeedData provisions a bootstrap platform admin when the user table is empty.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv("HARBORLANE_ADMIN_PASSWORD"))
	generated := false
	if password == "" {
		token, err := crypto.GenerateToken(12)
		if err != nil {
			return fmt.Errorf("generate bootstrap password: %w", err)
		}
		password = token
		generated = true
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	admin := models.User{
		Username: "admin",
		Email:    "admin@harborlane.local",
		Password: hash,
		Role:     roles.GlobalAdmin,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if generated {
		logger.WithModule("database").Info("bootstrap admin created",
			zap.String("username", admin.Username),
			zap.String("password", password),
		)
	}

	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
	"github.com/harborlane/harborlane/pkg/crypto"
	apperrors "github.com/harborlane/harborlane/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrUserInactive signals the account has been deactivated.
	ErrUserInactive = apperrors.New("USER_INACTIVE", "User account is deactivated", http.StatusForbidden)
)

// RegisterUserInput captures the attributes required to create an account.
type RegisterUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserService manages account lifecycle and global role maintenance.
type UserService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, auditService: auditService}, nil
}

// Register creates a new account with the default global role.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      roles.GlobalMember,
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already taken")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		Action:   "user.register",
		Resource: user.ID,
		Result:   "success",
	})

	return user, nil
}

// Authenticate verifies credentials and returns the matching active user.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List returns a page of users ordered by creation date.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// SetGlobalRole assigns a platform-wide role. Admin-console operation.
func (s *UserService) SetGlobalRole(ctx context.Context, userID string, role roles.GlobalRole) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown global role")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("user service: update role: %w", err)
	}
	user.Role = role

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.set_role",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{"role": role},
	})

	return user, nil
}

// SetActive toggles the account's active flag. Admin-console operation.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("user service: update active flag: %w", err)
	}
	user.IsActive = active

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.set_active",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{"active": active},
	})

	return user, nil
}

// RecordLogin stamps the user's last login metadata.
func (s *UserService) RecordLogin(ctx context.Context, userID, ip string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"last_login_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"last_login_ip": strings.TrimSpace(ip),
		}).Error
}

// recomputeGlobalRole derives the user's platform role from their remaining
// team memberships instead of resetting it imperatively. Admin is sticky;
// owning or leading any team yields TeamLeader; anything else settles at
// Member. Runs inside the caller's transaction.
func recomputeGlobalRole(tx *gorm.DB, userID string) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("recompute role: load user: %w", err)
	}

	if roles.IsAdmin(user.Role) {
		return nil
	}

	var leading int64
	if err := tx.Model(&models.TeamMembership{}).
		Where("user_id = ? AND role IN ?", userID, []roles.TeamRole{roles.TeamOwner, roles.TeamLeader}).
		Count(&leading).Error; err != nil {
		return fmt.Errorf("recompute role: count leadership: %w", err)
	}

	derived := roles.GlobalMember
	if leading > 0 {
		derived = roles.GlobalTeamLeader
	}

	if derived == user.Role {
		return nil
	}

	return tx.Model(&models.User{}).Where("id = ?", userID).Update("role", derived).Error
}

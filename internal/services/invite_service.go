package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/harborlane/harborlane/internal/models"
	"github.com/harborlane/harborlane/internal/roles"
	"github.com/harborlane/harborlane/pkg/crypto"
	apperrors "github.com/harborlane/harborlane/pkg/errors"
	"github.com/harborlane/harborlane/pkg/logger"
	"github.com/harborlane/harborlane/pkg/mail"
)

var (
	// ErrInviteNotFound indicates the token does not match a pending invite.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found or already used", http.StatusNotFound)
	// ErrInviteExpired indicates the invite's validity window has passed.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "Invite has expired", http.StatusBadRequest)
)

// DefaultInviteTTL is the validity window for new invites.
const DefaultInviteTTL = 7 * 24 * time.Hour

// CreateInviteInput carries the attributes for a new invitation.
type CreateInviteInput struct {
	Email     string
	InvitedBy string
	ScopeType string
	ScopeID   string
	Role      string
}

// InviteService issues and redeems scope invitations. Raw tokens are returned
// to the caller once and only their hash is stored. Delivery is best effort;
// a failed email never rolls back the invite row.
type InviteService struct {
	db           *gorm.DB
	orgService   *OrganizationService
	teamService  *TeamService
	mailer       mail.Mailer
	baseURL      string
	ttl          time.Duration
	auditService *AuditService
}

// NewInviteService constructs an InviteService instance. The mailer may be nil
// when delivery is disabled.
func NewInviteService(db *gorm.DB, orgService *OrganizationService, teamService *TeamService, mailer mail.Mailer, baseURL string, auditService *AuditService) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}
	if orgService == nil || teamService == nil {
		return nil, errors.New("invite service: scope services are required")
	}
	return &InviteService{
		db:           db,
		orgService:   orgService,
		teamService:  teamService,
		mailer:       mailer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		ttl:          DefaultInviteTTL,
		auditService: auditService,
	}, nil
}

func hashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues an invitation for the given scope and role and dispatches the
// email in the background. Returns the invite row and the raw token.
func (s *InviteService) Create(ctx context.Context, input CreateInviteInput) (*models.UserInvite, string, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", apperrors.NewBadRequest("invite email is required")
	}

	switch input.ScopeType {
	case models.InviteScopeOrganization:
		role, ok := roles.ParseOrgRole(input.Role)
		if !ok || role == roles.OrgOwner {
			return nil, "", apperrors.NewBadRequest("invalid organization role for invite")
		}
		if _, err := s.orgService.GetByID(ctx, input.ScopeID); err != nil {
			return nil, "", err
		}
	case models.InviteScopeTeam:
		role, ok := roles.ParseTeamRole(input.Role)
		if !ok || role == roles.TeamOwner {
			return nil, "", apperrors.NewBadRequest("invalid team role for invite")
		}
		if _, err := s.teamService.GetByID(ctx, input.ScopeID); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", apperrors.NewBadRequest("unknown invite scope type")
	}

	token, err := crypto.GenerateToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("invite service: generate token: %w", err)
	}

	invite := &models.UserInvite{
		Email:     email,
		TokenHash: hashInviteToken(token),
		InvitedBy: strings.TrimSpace(input.InvitedBy),
		ScopeType: input.ScopeType,
		ScopeID:   input.ScopeID,
		Role:      input.Role,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}

	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, "", fmt.Errorf("invite service: create invite: %w", err)
	}

	s.dispatchEmail(invite, token)

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "invite.create",
		Resource: invite.ScopeID,
		Result:   "success",
		Metadata: map[string]any{"scope_type": invite.ScopeType, "email": email},
	})

	return invite, token, nil
}

// dispatchEmail sends the invite message in a goroutine. Failures are logged
// and never affect the caller.
func (s *InviteService) dispatchEmail(invite *models.UserInvite, token string) {
	if s.mailer == nil {
		return
	}

	link := fmt.Sprintf("%s/invites/accept?token=%s", s.baseURL, token)
	msg := mail.Message{
		To:      []string{invite.Email},
		Subject: "You have been invited to join a workspace",
		Body: fmt.Sprintf(
			"You have been invited to join a %s as %s.\r\n\r\nAccept the invitation: %s\r\n\r\nThis link expires on %s.\r\n",
			invite.ScopeType, invite.Role, link, invite.ExpiresAt.Format(time.RFC1123),
		),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			logger.Warn("invite email delivery failed",
				zap.String("email", invite.Email),
				zap.String("scope_id", invite.ScopeID),
				zap.Error(err),
			)
		}
	}()
}

// Accept redeems a raw invite token for the given user. The invite must be
// pending and unexpired, and the user's email must match. The resulting
// membership insert runs through the regular add path with all its guards.
func (s *InviteService) Accept(ctx context.Context, token, userID string) (*models.UserInvite, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewBadRequest("invite token is required")
	}

	var invite models.UserInvite
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", hashInviteToken(token)).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: load invite: %w", err)
	}

	if invite.AcceptedAt != nil {
		return nil, ErrInviteNotFound
	}
	if time.Now().UTC().After(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("invite service: load user: %w", err)
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return nil, apperrors.ErrForbidden
	}

	switch invite.ScopeType {
	case models.InviteScopeOrganization:
		role, _ := roles.ParseOrgRole(invite.Role)
		if _, err := s.orgService.AddMember(ctx, invite.ScopeID, user.ID, role); err != nil {
			return nil, err
		}
	case models.InviteScopeTeam:
		role, _ := roles.ParseTeamRole(invite.Role)
		if _, err := s.teamService.AddMember(ctx, invite.ScopeID, user.ID, role); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewBadRequest("unknown invite scope type")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&invite).Update("accepted_at", now).Error; err != nil {
		return nil, fmt.Errorf("invite service: mark accepted: %w", err)
	}
	invite.AcceptedAt = &now

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		Action:   "invite.accept",
		Resource: invite.ScopeID,
		Result:   "success",
		Metadata: map[string]any{"scope_type": invite.ScopeType},
	})

	return &invite, nil
}

// ListForScope returns pending invites for a scope.
func (s *InviteService) ListForScope(ctx context.Context, scopeType, scopeID string) ([]models.UserInvite, error) {
	ctx = ensureContext(ctx)

	var invites []models.UserInvite
	err := s.db.WithContext(ctx).
		Where("scope_type = ? AND scope_id = ? AND accepted_at IS NULL AND expires_at > ?", scopeType, scopeID, time.Now().UTC()).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}
	return invites, nil
}

// Revoke deletes a pending invite.
func (s *InviteService) Revoke(ctx context.Context, inviteID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND accepted_at IS NULL", inviteID).
		Delete(&models.UserInvite{})
	if result.Error != nil {
		return fmt.Errorf("invite service: revoke invite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// CleanupExpired deletes invites past their validity window. Invoked by the
// maintenance sweep.
func (s *InviteService) CleanupExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at <= ? AND accepted_at IS NULL", time.Now().UTC()).
		Delete(&models.UserInvite{})
	if result.Error != nil {
		return 0, fmt.Errorf("invite service: cleanup expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	models "github.com/quantprep/gatekeeper/internal/models"
	"github.com/quantprep/gatekeeper/pkg/logctx"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotIndexed means no identity is bound to the email key.
	ErrNotIndexed = errors.New("email not indexed")
	// ErrEmailConflict means the email key is already bound to a different
	// identity. Resolution fails closed rather than rebinding.
	ErrEmailConflict = errors.New("email key bound to another user")
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// EmailKey normalizes an email address into a lookup key: lowercased with
// dots replaced by underscores (the key must satisfy document-key rules the
// frontend store imposes, and matches what providers send back).
func EmailKey(email string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(email)), ".", "_")
}

// EnsureUser creates the identity row on first authentication and backfills
// the email index on every login. Existing profile fields are preserved.
func (s *Service) EnsureUser(ctx context.Context, uid, email, displayName string) (*models.User, error) {
	if uid == "" || email == "" {
		return nil, fmt.Errorf("uid and email are required")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", uid).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				ID:          uid,
				Email:       email,
				DisplayName: displayName,
				Theme:       "dark",
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		return s.bindEmail(ctx, tx, email, uid)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// bindEmail inserts the email index entry if absent. An existing binding to
// a different uid is a hard error; it is never silently overwritten.
func (s *Service) bindEmail(ctx context.Context, tx *gorm.DB, email, uid string) error {
	key := EmailKey(email)
	rec := models.EmailIndex{EmailKey: key, UserID: uid}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to bind email index: %w", err)
	}

	var existing models.EmailIndex
	if err := tx.Where("email_key = ?", key).First(&existing).Error; err != nil {
		return fmt.Errorf("failed to read back email index: %w", err)
	}
	if existing.UserID != uid {
		logctx.FromCtx(ctx, s.log).Errorw("email_index_conflict", "email_key", key, "bound_uid", existing.UserID, "uid", uid)
		return ErrEmailConflict
	}
	return nil
}

// ResolveEmail maps a provider-supplied email to a user id via the index.
func (s *Service) ResolveEmail(ctx context.Context, email string) (string, error) {
	var rec models.EmailIndex
	err := s.db.WithContext(ctx).Where("email_key = ?", EmailKey(email)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotIndexed
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve email: %w", err)
	}
	return rec.UserID, nil
}

func (s *Service) Get(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns users matching the exact (lowercased) email. Used by
// the admin lookup page.
func (s *Service) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile persists the dashboard-owned profile fields. Only non-nil
// fields are written.
func (s *Service) UpdateProfile(ctx context.Context, uid string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

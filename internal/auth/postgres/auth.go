package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wordaddict/finance-sub001/internal/auth"
	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) WithinTx(ctx context.Context, fn func(repo auth.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*userdm.User, error) {
	var user userdm.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*userdm.User, error) {
	var user userdm.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *userdm.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return r.db.WithContext(ctx).Model(&userdm.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    time.Now(),
		}).Error
}

func (r *Repository) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&userdm.User{}).
		Where("id = ? AND email_verified_at IS NULL", userID).
		Updates(map[string]interface{}{
			"email_verified_at": at,
			"updated_at":        at,
		}).Error
}

func (r *Repository) CreateToken(ctx context.Context, token *userdm.VerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *Repository) FindTokenByHash(ctx context.Context, hash, purpose string) (*userdm.VerificationToken, error) {
	var token userdm.VerificationToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND purpose = ?", hash, purpose).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *Repository) ConsumeToken(ctx context.Context, tokenID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&userdm.VerificationToken{}).
		Where("id = ? AND used_at IS NULL", tokenID).
		Update("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateSession(ctx context.Context, session *userdm.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) FindSession(ctx context.Context, id string) (*userdm.Session, error) {
	var session userdm.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *Repository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&userdm.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}

func (r *Repository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&userdm.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

// PurgeExpiredTokens removes verification and reset tokens that expired or were consumed before now.
func (r *Repository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&userdm.VerificationToken{})
	return res.RowsAffected, res.Error
}

// PurgeExpiredSessions removes sessions that expired or were revoked before now.
func (r *Repository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", now, now).
		Delete(&userdm.Session{})
	return res.RowsAffected, res.Error
}

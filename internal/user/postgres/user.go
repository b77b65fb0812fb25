package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/notification"
	"github.com/wordaddict/finance-sub001/internal/user"
)

// UserRepository implements user.Repository and notification.Directory using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithinTx(ctx context.Context, fn func(repo user.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepository{db: tx})
	})
}

func (r *UserRepository) List(ctx context.Context, status string) ([]userdm.User, error) {
	var users []userdm.User
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&users).Error
	return users, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*userdm.User, error) {
	var u userdm.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id, status string, emailVerifiedAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&userdm.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            status,
			"email_verified_at": emailVerifiedAt,
			"updated_at":        time.Now(),
		}).Error
}

func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	return r.db.WithContext(ctx).Model(&userdm.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		}).Error
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", id).Delete(&userdm.VerificationToken{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&userdm.Session{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&userdm.User{}).Error
}

func (r *UserRepository) RevokeSessions(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&userdm.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

func (r *UserRepository) ContactByID(ctx context.Context, userID string) (*notification.Contact, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &notification.Contact{ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone}, nil
}

func (r *UserRepository) ActiveAdminContacts(ctx context.Context) ([]notification.Contact, error) {
	var admins []userdm.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", string(coreuser.RoleAdmin), string(coreuser.StatusActive)).
		Order("email").
		Find(&admins).Error
	if err != nil {
		return nil, err
	}
	out := make([]notification.Contact, 0, len(admins))
	for _, a := range admins {
		out = append(out, notification.Contact{ID: a.ID, Email: a.Email, Name: a.Name, Phone: a.Phone})
	}
	return out, nil
}

// IsActiveAdminEmail backs the wishlist access-code eligibility check.
func (r *UserRepository) IsActiveAdminEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userdm.User{}).
		Where("LOWER(email) = LOWER(?) AND role = ? AND status = ?", email, string(coreuser.RoleAdmin), string(coreuser.StatusActive)).
		Count(&count).Error
	return count > 0, err
}

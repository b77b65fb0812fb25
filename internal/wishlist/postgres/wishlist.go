package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	"github.com/wordaddict/finance-sub001/internal/wishlist"
)

// WishlistRepository implements wishlist.Repository and wishlist.AccessRepository using GORM
type WishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

func (r *WishlistRepository) WithinTx(ctx context.Context, fn func(repo wishlist.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WishlistRepository{db: tx})
	})
}

func (r *WishlistRepository) WithinAccessTx(ctx context.Context, fn func(repo wishlist.AccessRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WishlistRepository{db: tx})
	})
}

// List orders by priority, highest first.
func (r *WishlistRepository) List(ctx context.Context, includeInactive bool) ([]wishlistDatamodel.WishlistItem, error) {
	var rows []wishlistDatamodel.WishlistItem
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("priority DESC, created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *WishlistRepository) Totals(ctx context.Context, itemIDs []string) (map[string]wishlist.Totals, error) {
	out := make(map[string]wishlist.Totals, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	var confirmed []struct {
		ItemID string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&wishlistDatamodel.WishlistConfirmation{}).
		Select("item_id, COALESCE(SUM(quantity), 0) AS total").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&confirmed).Error
	if err != nil {
		return nil, err
	}

	var contributed []struct {
		ItemID string
		Total  int64
	}
	err = r.db.WithContext(ctx).Model(&wishlistDatamodel.WishlistContribution{}).
		Select("item_id, COALESCE(SUM(amount_cents), 0) AS total").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&contributed).Error
	if err != nil {
		return nil, err
	}

	for _, id := range itemIDs {
		out[id] = wishlist.Totals{ItemID: id}
	}
	for _, c := range confirmed {
		t := out[c.ItemID]
		t.ConfirmedQuantity = c.Total
		out[c.ItemID] = t
	}
	for _, c := range contributed {
		t := out[c.ItemID]
		t.ContributedCents = c.Total
		out[c.ItemID] = t
	}
	return out, nil
}

func (r *WishlistRepository) FindByID(ctx context.Context, id string) (*wishlistDatamodel.WishlistItem, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// LockByID takes a row lock on postgres; sqlite serialises writers on its own.
func (r *WishlistRepository) LockByID(ctx context.Context, id string) (*wishlistDatamodel.WishlistItem, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(q, id)
}

func (r *WishlistRepository) find(q *gorm.DB, id string) (*wishlistDatamodel.WishlistItem, error) {
	var item wishlistDatamodel.WishlistItem
	if err := q.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wishlist.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *WishlistRepository) CreateItem(ctx context.Context, item *wishlistDatamodel.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *WishlistRepository) UpdateItem(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&wishlistDatamodel.WishlistItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *WishlistRepository) AddConfirmation(ctx context.Context, c *wishlistDatamodel.WishlistConfirmation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *WishlistRepository) AddContribution(ctx context.Context, c *wishlistDatamodel.WishlistContribution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *WishlistRepository) ListContributions(ctx context.Context, itemID string) ([]wishlistDatamodel.WishlistContribution, error) {
	var rows []wishlistDatamodel.WishlistContribution
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *WishlistRepository) CreateAccessCode(ctx context.Context, c *wishlistDatamodel.WishlistAccessCode) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *WishlistRepository) LatestAccessCode(ctx context.Context, email string, now time.Time) (*wishlistDatamodel.WishlistAccessCode, error) {
	var row wishlistDatamodel.WishlistAccessCode
	err := r.db.WithContext(ctx).
		Where("email = ? AND used_at IS NULL AND expires_at > ?", email, now).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wishlist.ErrCodeNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *WishlistRepository) IncrementAttempts(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&wishlistDatamodel.WishlistAccessCode{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *WishlistRepository) MarkCodeUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&wishlistDatamodel.WishlistAccessCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *WishlistRepository) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&wishlistDatamodel.WishlistAccessCode{})
	return res.RowsAffected, res.Error
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wordaddict/finance-sub001/internal/category"
	categoryDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/category"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListActive(ctx context.Context) ([]categoryDatamodel.ExpenseCategory, error) {
	var categories []categoryDatamodel.ExpenseCategory
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.ExpenseCategory, error) {
	var cat categoryDatamodel.ExpenseCategory
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, category.ErrNotFound
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.ExpenseCategory) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&categoryDatamodel.ExpenseCategory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}

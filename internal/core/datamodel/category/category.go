package category

import "time"

type ExpenseCategory struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

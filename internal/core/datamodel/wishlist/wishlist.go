package wishlist

import "time"

type WishlistItem struct {
	ID                 string    `gorm:"type:uuid;primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	Description        string    `gorm:"column:description"`
	ImageURL           *string   `gorm:"column:image_url"`
	PurchaseURL        *string   `gorm:"column:purchase_url"`
	PriceCents         int64     `gorm:"column:price_cents;not null"`
	QuantityNeeded     int64     `gorm:"column:quantity_needed;not null"`
	Priority           int       `gorm:"column:priority;not null;default:0"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true"`
	AllowContributions bool      `gorm:"column:allow_contributions;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}

type WishlistConfirmation struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ItemID     string    `gorm:"column:item_id;type:uuid;not null;index"`
	DonorName  string    `gorm:"column:donor_name;not null"`
	DonorEmail string    `gorm:"column:donor_email;not null"`
	DonorPhone *string   `gorm:"column:donor_phone"`
	Quantity   int64     `gorm:"column:quantity;not null"`
	Note       *string   `gorm:"column:note"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (WishlistConfirmation) TableName() string {
	return "wishlist_confirmations"
}

type WishlistContribution struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ItemID      string    `gorm:"column:item_id;type:uuid;not null;index"`
	DonorName   string    `gorm:"column:donor_name;not null"`
	DonorEmail  string    `gorm:"column:donor_email;not null"`
	DonorPhone  *string   `gorm:"column:donor_phone"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	Note        *string   `gorm:"column:note"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (WishlistContribution) TableName() string {
	return "wishlist_contributions"
}

type WishlistAccessCode struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Email     string     `gorm:"column:email;not null;index"`
	CodeHash  string     `gorm:"column:code_hash;not null"`
	Salt      string     `gorm:"column:salt;not null"`
	Attempts  int        `gorm:"column:attempts;not null;default:0"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (WishlistAccessCode) TableName() string {
	return "wishlist_access_codes"
}

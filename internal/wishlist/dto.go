package wishlist

type DonorDTO struct {
	DonorName  string  `json:"donorName" validate:"notblank,max=200"`
	DonorEmail string  `json:"donorEmail" validate:"required,email,max=320"`
	DonorPhone *string `json:"donorPhone" validate:"omitempty,max=40"`
	Note       *string `json:"note" validate:"omitempty,max=2000"`
}

type ConfirmDTO struct {
	DonorDTO
	Quantity int64 `json:"quantity" validate:"gte=1"`
}

type ContributeDTO struct {
	DonorDTO
	AmountCents int64 `json:"amountCents" validate:"gt=0"`
}

type CreateItemDTO struct {
	Name               string  `json:"name" validate:"notblank,max=200"`
	Description        string  `json:"description" validate:"max=5000"`
	ImageURL           *string `json:"imageUrl" validate:"omitempty,url"`
	PurchaseURL        *string `json:"purchaseUrl" validate:"omitempty,url"`
	PriceCents         int64   `json:"priceCents" validate:"gte=0"`
	QuantityNeeded     int64   `json:"quantityNeeded" validate:"gte=1"`
	Priority           int     `json:"priority" validate:"gte=0"`
	AllowContributions bool    `json:"allowContributions"`
}

// UpdateItemDTO leaves nil fields unchanged.
type UpdateItemDTO struct {
	Name               *string `json:"name" validate:"omitempty,notblank,max=200"`
	Description        *string `json:"description" validate:"omitempty,max=5000"`
	ImageURL           *string `json:"imageUrl" validate:"omitempty,url"`
	PurchaseURL        *string `json:"purchaseUrl" validate:"omitempty,url"`
	PriceCents         *int64  `json:"priceCents" validate:"omitempty,gte=0"`
	QuantityNeeded     *int64  `json:"quantityNeeded" validate:"omitempty,gte=1"`
	Priority           *int    `json:"priority" validate:"omitempty,gte=0"`
	IsActive           *bool   `json:"isActive"`
	AllowContributions *bool   `json:"allowContributions"`
}

type AccessCodeDTO struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

type VerifyCodeDTO struct {
	Email string `json:"email" validate:"required,email,max=320"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

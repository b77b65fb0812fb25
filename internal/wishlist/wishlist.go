package wishlist

import (
	"time"

	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
)

// Totals are the pledge ledgers summed for one item.
type Totals struct {
	ItemID            string `db:"item_id"`
	ConfirmedQuantity int64  `db:"confirmed_quantity"`
	ContributedCents  int64  `db:"contributed_cents"`
}

type Progress struct {
	ConfirmedQuantity   int64 `json:"confirmedQuantity"`
	RemainingQuantity   int64 `json:"remainingQuantity"`
	ContributedCents    int64 `json:"contributedCents"`
	GoalCents           int64 `json:"goalCents"`
	ConfirmedValueCents int64 `json:"confirmedValueCents"`
	RemainingValueCents int64 `json:"remainingValueCents"`
}

// ComputeProgress derives every progress figure from the item and its ledger totals.
func ComputeProgress(item *wishlistDatamodel.WishlistItem, t Totals) Progress {
	goal := item.PriceCents * item.QuantityNeeded
	confirmedValue := t.ConfirmedQuantity*item.PriceCents + t.ContributedCents
	return Progress{
		ConfirmedQuantity:   t.ConfirmedQuantity,
		RemainingQuantity:   max(0, item.QuantityNeeded-t.ConfirmedQuantity),
		ContributedCents:    t.ContributedCents,
		GoalCents:           goal,
		ConfirmedValueCents: confirmedValue,
		RemainingValueCents: max(0, goal-confirmedValue),
	}
}

type Item struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	ImageURL           *string   `json:"imageUrl,omitempty"`
	PurchaseURL        *string   `json:"purchaseUrl,omitempty"`
	PriceCents         int64     `json:"priceCents"`
	QuantityNeeded     int64     `json:"quantityNeeded"`
	Priority           int       `json:"priority"`
	IsActive           bool      `json:"isActive"`
	AllowContributions bool      `json:"allowContributions"`
	Progress           Progress  `json:"progress"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func FromDatamodel(item *wishlistDatamodel.WishlistItem, t Totals) *Item {
	return &Item{
		ID:                 item.ID,
		Name:               item.Name,
		Description:        item.Description,
		ImageURL:           item.ImageURL,
		PurchaseURL:        item.PurchaseURL,
		PriceCents:         item.PriceCents,
		QuantityNeeded:     item.QuantityNeeded,
		Priority:           item.Priority,
		IsActive:           item.IsActive,
		AllowContributions: item.AllowContributions,
		Progress:           ComputeProgress(item, t),
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
	}
}

// Pledge is the public receipt for a confirmation or contribution.
type Pledge struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Quantity    int64     `json:"quantity,omitempty"`
	AmountCents int64     `json:"amountCents,omitempty"`
	Item        *Item     `json:"item"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Contribution struct {
	ID          string    `json:"id"`
	DonorName   string    `json:"donorName"`
	DonorEmail  string    `json:"donorEmail"`
	DonorPhone  *string   `json:"donorPhone,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

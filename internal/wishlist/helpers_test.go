package wishlist_test

import (
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
)

func itemRow(price, qty int64) *wishlistDatamodel.WishlistItem {
	return &wishlistDatamodel.WishlistItem{ID: "item", Name: "Projector", PriceCents: price, QuantityNeeded: qty, IsActive: true}
}

package models

import (
	"time"
)

// Discount is a percentage code, optionally scoped to one seller's shop.
// A nil SellerID means the code is valid marketplace-wide.
type Discount struct {
	ID               int64     `db:"id" json:"id"`
	SellerID         *int64    `db:"seller_id" json:"seller_id,omitempty"`
	Title            string    `db:"title" json:"title"`
	Code             string    `db:"code" json:"code"`
	Description      string    `db:"description" json:"description"`
	Percentage       int       `db:"percentage" json:"percentage"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	ForFirstPurchase bool      `db:"for_first_purchase" json:"for_first_purchase"`
	IsSingleUse      bool      `db:"is_single_use" json:"is_single_use"`
	ValidFrom        time.Time `db:"valid_from" json:"valid_from"`
	ValidTo          time.Time `db:"valid_to" json:"valid_to"`
	MinOrderAmount   int       `db:"min_order_amount" json:"min_order_amount"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// IsValid reports whether the discount is active and inside its validity window.
func (d *Discount) IsValid(now time.Time) bool {
	return d.IsActive && !now.Before(d.ValidFrom) && !now.After(d.ValidTo)
}

// RemainingTime returns how long the discount stays valid, zero if expired.
func (d *Discount) RemainingTime(now time.Time) time.Duration {
	if now.After(d.ValidTo) {
		return 0
	}
	return d.ValidTo.Sub(now)
}

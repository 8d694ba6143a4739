package models

import (
	"time"
)

// Cart is the pre-checkout staging area, one per user. Checkout does not read
// from it; clients submit an explicit line-item list.
type Cart struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem snapshots the product at add time. The snapshot is for display
// only; checkout always re-reads live product state.
type CartItem struct {
	ID           int64     `db:"id" json:"id"`
	CartID       int64     `db:"cart_id" json:"cart_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	SellerID     int64     `db:"seller_id" json:"seller_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	ProductName  string    `db:"product_name" json:"product_name"`
	ProductPrice int       `db:"product_price" json:"product_price"`
	ProductStock int       `db:"product_stock" json:"product_stock"`
	ProductImage *string   `db:"product_image" json:"product_image,omitempty"`
	StoreName    string    `db:"store_name" json:"store_name"`
	AddedAt      time.Time `db:"added_at" json:"added_at"`
}

type CartDetail struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TotalItems int        `json:"total_items"`
	TotalPrice int        `json:"total_price"`
	Items      []CartItem `json:"items"`
}

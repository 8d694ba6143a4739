package models

// Product is the live catalog row checkout reads through to. Stock is the
// only field this service mutates; everything else belongs to the catalog.
type Product struct {
	ID       int64  `db:"id" json:"id"`
	SellerID int64  `db:"seller_id" json:"seller_id"`
	Name     string `db:"name" json:"name"`
	Price    int    `db:"price" json:"price"`
	Stock    int    `db:"stock" json:"stock"`
}

type Seller struct {
	ID       int64  `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"user_id"`
	ShopName string `db:"shop_name" json:"shop_name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

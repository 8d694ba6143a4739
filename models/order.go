package models

import (
	"time"
)

// Order statuses. Completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Only pending orders move; completed and cancelled are final.
func CanTransition(from, to string) bool {
	return from == StatusPending && (to == StatusCompleted || to == StatusCancelled)
}

type Order struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Status        string    `db:"status" json:"status"`
	OriginalPrice int       `db:"original_price" json:"original_price"`
	TotalPrice    int       `db:"total_price" json:"total_price"`
	DiscountID    *int64    `db:"discount_id" json:"discount_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem captures price and seller at order time. Rows are immutable after
// checkout; (order, product, seller) is unique.
type OrderItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	SellerID  int64 `db:"seller_id" json:"seller_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	Price     int   `db:"price" json:"price"`
}

type OrderItemDetail struct {
	ProductID   int64  `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	SellerID    int64  `db:"seller_id" json:"seller_id"`
	StoreName   string `db:"store_name" json:"store_name"`
	Quantity    int    `db:"quantity" json:"quantity"`
	Price       int    `db:"price" json:"price"`
	Subtotal    int    `db:"-" json:"subtotal"`
}

type DiscountSummary struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Title      string `json:"title"`
	Percentage int    `json:"percentage"`
}

type OrderDetail struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	OriginalPrice int               `json:"original_price"`
	TotalPrice    int               `json:"total_price"`
	Discount      *DiscountSummary  `json:"discount,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemDetail `json:"items"`
}

// SellerOrderView is one order as a seller sees it: only that seller's
// lines, plus the buying customer.
type SellerOrderView struct {
	OrderID    int64             `json:"order_id"`
	CustomerID int64             `json:"customer_id"`
	Status     string            `json:"status"`
	TotalPrice int               `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemDetail `json:"items"`
}

type OrderEvent struct {
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Type     string    `json:"type"` // created, status_updated, payment_check
	Status   string    `json:"status"`
	Total    int       `json:"total"`
	Occurred time.Time `json:"occurred"`
}

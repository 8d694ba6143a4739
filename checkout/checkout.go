// Package checkout converts a line-item list into a persisted order inside a
// single database transaction: stock gate, price capture, stock decrement,
// total computation. Everything commits together or not at all.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/discounts"
	"github.com/pooria159/grosha-backend/models"
	"github.com/pooria159/grosha-backend/pricing"
)

var ErrEmptyCart = errors.New("cart is empty")

type QuantityError struct {
	ProductID int64
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("quantity for product %d must be a positive integer", e.ProductID)
}

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// DiscountRejectedError surfaces a resolver failure in strict mode.
type DiscountRejectedError struct {
	Reason error
}

func (e *DiscountRejectedError) Error() string {
	return "discount rejected: " + e.Reason.Error()
}

func (e *DiscountRejectedError) Unwrap() error { return e.Reason }

// LineItem is one (product, quantity) pair submitted at checkout time.
type LineItem struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

type Request struct {
	Items        []LineItem
	DiscountCode string
	StoreID      string
}

// ProductRow is the locked catalog read used for the stock gate, carrying the
// shop name for the order line summary.
type ProductRow struct {
	models.Product
	ShopName string `db:"shop_name"`
}

// TxStore is the transaction-scoped storage surface. LockProduct must take a
// row lock so concurrent checkouts against the same product serialize, and
// DecrementStock must be visible to later LockProduct calls in the same
// transaction.
type TxStore interface {
	CreateOrder(ctx context.Context, userID int64) (int64, error)
	LockProduct(ctx context.Context, productID int64) (*ProductRow, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	SetOrderPrices(ctx context.Context, orderID int64, original, total int, discountID *int64) error
}

type Store interface {
	// Transact runs fn in one transaction, rolling back on any error.
	Transact(ctx context.Context, fn func(tx TxStore) error) error
}

type Resolver interface {
	Resolve(ctx context.Context, code, storeID string, orderTotal int, userID int64, now time.Time) (*discounts.Terms, error)
}

type Service struct {
	store    Store
	resolver Resolver
	strict   bool
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService builds the orchestrator. With strict false, any discount
// resolution failure silently yields an undiscounted order; with strict true,
// failures other than an unknown code abort the checkout.
func NewService(store Store, resolver Resolver, strict bool, logger zerolog.Logger) *Service {
	return &Service{store: store, resolver: resolver, strict: strict, logger: logger, now: time.Now}
}

// Checkout atomically creates an order from items. Stock is validated under a
// row lock and decremented per line in input order; unit price and seller are
// captured from the live product row.
func (s *Service) Checkout(ctx context.Context, userID int64, req Request) (*models.OrderDetail, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &QuantityError{ProductID: item.ProductID}
		}
	}

	var detail *models.OrderDetail
	err := s.store.Transact(ctx, func(tx TxStore) error {
		orderID, err := tx.CreateOrder(ctx, userID)
		if err != nil {
			return err
		}

		lines := make([]models.OrderItem, 0, len(req.Items))
		details := make([]models.OrderItemDetail, 0, len(req.Items))
		for _, item := range req.Items {
			product, err := tx.LockProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   product.Stock,
				}
			}

			line := models.OrderItem{
				OrderID:   orderID,
				ProductID: product.ID,
				SellerID:  product.SellerID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			}
			if err := tx.CreateOrderItem(ctx, &line); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, product.ID, item.Quantity); err != nil {
				return err
			}

			lines = append(lines, line)
			details = append(details, models.OrderItemDetail{
				ProductID:   product.ID,
				ProductName: product.Name,
				SellerID:    product.SellerID,
				StoreName:   product.ShopName,
				Quantity:    item.Quantity,
				Price:       product.Price,
				Subtotal:    product.Price * item.Quantity,
			})
		}

		subtotal := pricing.Subtotal(lines)

		terms, err := s.resolveDiscount(ctx, req, subtotal, userID)
		if err != nil {
			return err
		}

		percentage := 0
		var discountID *int64
		var summary *models.DiscountSummary
		if terms != nil {
			percentage = terms.Percentage
			discountID = &terms.ID
			summary = &models.DiscountSummary{
				ID:         terms.ID,
				Code:       terms.Code,
				Title:      terms.Title,
				Percentage: terms.Percentage,
			}
		}

		original, total := pricing.Quote(subtotal, percentage)
		if err := tx.SetOrderPrices(ctx, orderID, original, total, discountID); err != nil {
			return err
		}

		detail = &models.OrderDetail{
			ID:            orderID,
			UserID:        userID,
			Status:        models.StatusPending,
			OriginalPrice: original,
			TotalPrice:    total,
			Discount:      summary,
			CreatedAt:     s.now(),
			Items:         details,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("order_id", detail.ID).
		Int64("user_id", userID).
		Int("original_price", detail.OriginalPrice).
		Int("total_price", detail.TotalPrice).
		Msg("checkout completed")
	return detail, nil
}

// resolveDiscount applies the permissive rule observed in production: an
// unknown code never blocks checkout, and other resolver failures only do so
// in strict mode. Discount reads are unlocked; the usage-limit race is
// accepted as best effort.
func (s *Service) resolveDiscount(ctx context.Context, req Request, subtotal int, userID int64) (*discounts.Terms, error) {
	if req.DiscountCode == "" {
		return nil, nil
	}
	terms, err := s.resolver.Resolve(ctx, req.DiscountCode, req.StoreID, subtotal, userID, s.now())
	if err == nil {
		return terms, nil
	}
	if errors.Is(err, discounts.ErrNotFound) {
		return nil, nil
	}
	if s.strict {
		return nil, &DiscountRejectedError{Reason: err}
	}
	s.logger.Warn().Err(err).Str("code", req.DiscountCode).Msg("discount not applied")
	return nil, nil
}

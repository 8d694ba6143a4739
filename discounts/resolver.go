// Package discounts decides whether a discount code applies to an order and
// owns the discount lifecycle rules.
package discounts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/models"
)

var (
	ErrNotFound          = errors.New("discount code is invalid or expired")
	ErrWrongStore        = errors.New("discount code is not valid for this store")
	ErrInvalidStoreID    = errors.New("invalid store id")
	ErrFirstPurchaseOnly = errors.New("discount is only valid on your first purchase")
	ErrAlreadyUsed       = errors.New("discount code has already been used")
)

// BelowMinimumError carries the threshold so callers can render it.
type BelowMinimumError struct {
	Min int
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("order total must be at least %d to use this discount", e.Min)
}

// Record is a discount joined with its owning shop's name, if any.
type Record struct {
	models.Discount
	ShopName *string `db:"shop_name"`
}

// Terms is what a successful resolution returns. Resolution is a pure read;
// redemption state is the existence of an order referencing the discount.
type Terms struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Code             string  `json:"code"`
	Percentage       int     `json:"percentage"`
	SellerID         *int64  `json:"seller_id"`
	ShopName         *string `json:"shop_name"`
	Description      string  `json:"description"`
	MinOrderAmount   int     `json:"min_order_amount"`
	ForFirstPurchase bool    `json:"for_first_purchase"`
}

type Store interface {
	// FindActiveByCode returns the discount matching code that is active and
	// inside its validity window at now, or ErrNotFound.
	FindActiveByCode(ctx context.Context, code string, now time.Time) (*Record, error)
	// HasOrderBefore reports whether the user placed any order before now.
	HasOrderBefore(ctx context.Context, userID int64, now time.Time) (bool, error)
	// HasOrderWithDiscount reports whether the user already has an order
	// referencing the discount.
	HasOrderWithDiscount(ctx context.Context, userID, discountID int64) (bool, error)
}

type Resolver struct {
	store  Store
	logger zerolog.Logger
}

func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve checks a code against an order in progress. Checks short-circuit in
// a fixed sequence: existence/validity, minimum amount, store scope, first
// purchase, single use. storeID is the raw client-supplied store identifier
// and is only consulted for seller-scoped discounts.
func (r *Resolver) Resolve(ctx context.Context, code, storeID string, orderTotal int, userID int64, now time.Time) (*Terms, error) {
	rec, err := r.store.FindActiveByCode(ctx, code, now)
	if err != nil {
		return nil, err
	}

	if rec.MinOrderAmount > 0 && orderTotal < rec.MinOrderAmount {
		return nil, &BelowMinimumError{Min: rec.MinOrderAmount}
	}

	if rec.SellerID != nil {
		id, err := strconv.ParseInt(strings.TrimSpace(storeID), 10, 64)
		if err != nil {
			return nil, ErrInvalidStoreID
		}
		if id != *rec.SellerID {
			return nil, ErrWrongStore
		}
	}

	if rec.ForFirstPurchase {
		ordered, err := r.store.HasOrderBefore(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		if ordered {
			return nil, ErrFirstPurchaseOnly
		}
	}

	if rec.IsSingleUse {
		used, err := r.store.HasOrderWithDiscount(ctx, userID, rec.ID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrAlreadyUsed
		}
	}

	r.logger.Debug().Str("code", rec.Code).Int64("user_id", userID).Msg("discount resolved")

	return &Terms{
		ID:               rec.ID,
		Title:            rec.Title,
		Code:             rec.Code,
		Percentage:       rec.Percentage,
		SellerID:         rec.SellerID,
		ShopName:         rec.ShopName,
		Description:      rec.Description,
		MinOrderAmount:   rec.MinOrderAmount,
		ForFirstPurchase: rec.ForFirstPurchase,
	}, nil
}

// Package orders owns the order lifecycle after checkout: the status machine
// and the owner/seller views over persisted orders.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/models"
)

var (
	// ErrNotFound deliberately covers both a missing order and one the
	// caller may not touch, so the response does not leak existence.
	ErrNotFound        = errors.New("order not found or access denied")
	ErrInvalidStatus   = errors.New("invalid status, allowed values: pending, completed, cancelled")
	ErrNoSellerProfile = errors.New("caller has no seller profile")
)

// TransitionError reports a move the status machine forbids.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order cannot change status from %s to %s", e.From, e.To)
}

type Store interface {
	// FindAccessibleOrder returns the order only when userID owns it or owns
	// a seller with at least one line in it.
	FindAccessibleOrder(ctx context.Context, orderID, userID int64) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error)
	ListUserOrders(ctx context.Context, userID int64) ([]models.OrderDetail, error)
	ListSellerOrders(ctx context.Context, sellerID int64) ([]models.SellerOrderView, error)
	FindSellerByUser(ctx context.Context, userID int64) (*models.Seller, error)
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// UpdateStatus moves an order through the lifecycle machine on behalf of the
// caller. The target is validated before anything is read or written.
func (s *Service) UpdateStatus(ctx context.Context, orderID, userID int64, target string) (*models.Order, error) {
	if !models.ValidStatus(target) {
		return nil, ErrInvalidStatus
	}

	order, err := s.store.FindAccessibleOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(order.Status, target) {
		return nil, &TransitionError{From: order.Status, To: target}
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, target); err != nil {
		return nil, err
	}
	order.Status = target

	s.logger.Info().Int64("order_id", orderID).Str("status", target).Msg("order status updated")
	return order, nil
}

// Detail returns a fully materialized order for its owner or an involved seller.
func (s *Service) Detail(ctx context.Context, orderID, userID int64) (*models.OrderDetail, error) {
	if _, err := s.store.FindAccessibleOrder(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.store.GetOrderDetail(ctx, orderID)
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]models.OrderDetail, error) {
	return s.store.ListUserOrders(ctx, userID)
}

// ListForSeller returns orders containing the caller's shop's lines.
func (s *Service) ListForSeller(ctx context.Context, userID int64) ([]models.SellerOrderView, error) {
	seller, err := s.store.FindSellerByUser(ctx, userID)
	if err != nil {
		return nil, ErrNoSellerProfile
	}
	return s.store.ListSellerOrders(ctx, seller.ID)
}

// CancelIfPending cancels an order that is still pending, reporting whether a
// cancellation happened. Used by the delayed payment check.
func (s *Service) CancelIfPending(ctx context.Context, orderID int64) (bool, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != models.StatusPending {
		return false, nil
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, models.StatusCancelled); err != nil {
		return false, err
	}
	s.logger.Info().Int64("order_id", orderID).Msg("pending order auto-cancelled")
	return true, nil
}

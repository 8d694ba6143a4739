// Package carts is the pre-checkout staging area. Items snapshot the product
// at add time; checkout never reads the cart unless the client bridges it
// through the checkout-items adapter explicitly.
package carts

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/checkout"
	"github.com/pooria159/grosha-backend/models"
)

var (
	ErrProductNotFound = errors.New("product or seller not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrQuantity        = errors.New("quantity must be at least 1")
)

// Snapshot is the live product row with its shop name, read once at add time.
type Snapshot struct {
	models.Product
	ShopName     string  `db:"shop_name"`
	ProductImage *string `db:"product_image"`
}

type Store interface {
	GetProductWithShop(ctx context.Context, productID int64) (*Snapshot, error)
	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	CartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	FindCartItem(ctx context.Context, cartID, productID, sellerID int64) (*models.CartItem, error)
	GetCartItem(ctx context.Context, itemID int64) (*models.CartItem, error)
	InsertCartItem(ctx context.Context, item *models.CartItem) (int64, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context, cartID int64) error
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Detail returns the caller's cart with item and price totals, creating an
// empty cart on first access.
func (s *Service) Detail(ctx context.Context, userID int64) (*models.CartDetail, error) {
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.CartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	detail := &models.CartDetail{ID: cart.ID, UserID: userID, Items: items}
	for _, item := range items {
		detail.TotalItems += item.Quantity
		detail.TotalPrice += item.ProductPrice * item.Quantity
	}
	return detail, nil
}

// AddItem puts a product into the cart, snapshotting name, price, stock and
// shop name. Adding the same (product, seller) again increments quantity.
func (s *Service) AddItem(ctx context.Context, userID, productID, sellerID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrQuantity
	}
	snap, err := s.store.GetProductWithShop(ctx, productID)
	if err != nil || snap.SellerID != sellerID {
		return nil, ErrProductNotFound
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.store.FindCartItem(ctx, cart.ID, productID, sellerID); err == nil {
		newQuantity := existing.Quantity + quantity
		if err := s.store.UpdateCartItemQuantity(ctx, existing.ID, newQuantity); err != nil {
			return nil, err
		}
		existing.Quantity = newQuantity
		return existing, nil
	}

	item := &models.CartItem{
		CartID:       cart.ID,
		ProductID:    productID,
		SellerID:     sellerID,
		Quantity:     quantity,
		ProductName:  snap.Name,
		ProductPrice: snap.Price,
		ProductStock: snap.Stock,
		ProductImage: snap.ProductImage,
		StoreName:    snap.ShopName,
	}
	id, err := s.store.InsertCartItem(ctx, item)
	if err != nil {
		return nil, err
	}
	item.ID = id
	s.logger.Debug().Int64("cart_id", cart.ID).Int64("product_id", productID).Msg("cart item added")
	return item, nil
}

// UpdateQuantity sets a new quantity on an item the caller owns.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrQuantity
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCartItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

// RemoveItem deletes one item the caller owns.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	return s.store.DeleteCartItem(ctx, itemID)
}

// Clear empties the caller's cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.ClearCart(ctx, cart.ID)
}

// CheckoutItems reshapes the cart into a checkout payload. The bridge is
// opt-in: clients fetch this and submit it to checkout themselves.
func (s *Service) CheckoutItems(ctx context.Context, userID int64) ([]checkout.LineItem, error) {
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.CartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	lines := make([]checkout.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, checkout.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *Service) ownedItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	item, err := s.store.GetCartItem(ctx, itemID)
	if err != nil {
		return nil, ErrItemNotFound
	}
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, ErrItemNotFound
	}
	return item, nil
}

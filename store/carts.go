package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pooria159/grosha-backend/carts"
	"github.com/pooria159/grosha-backend/models"
)

const getProductWithShopQuery = `
	SELECT p.id, p.seller_id, p.name, p.price, p.stock, p.image AS product_image, s.shop_name
	FROM products p
	JOIN sellers s ON s.id = p.seller_id
	WHERE p.id = ?`

func (s *MySQL) GetProductWithShop(ctx context.Context, productID int64) (*carts.Snapshot, error) {
	var snap carts.Snapshot
	if err := s.db.GetContext(ctx, &snap, getProductWithShopQuery, productID); err != nil {
		if isNoRows(err) {
			return nil, carts.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return &snap, nil
}

const getCartQuery = `SELECT * FROM carts WHERE user_id = ?`
const insertCartQuery = `INSERT INTO carts (user_id, created_at, updated_at) VALUES (?, NOW(), NOW())`

func (s *MySQL) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, getCartQuery, userID)
	if err == nil {
		return &cart, nil
	}
	if !isNoRows(err) {
		return nil, errors.Wrap(err, "get cart")
	}

	if _, err := s.db.ExecContext(ctx, insertCartQuery, userID); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	if err := s.db.GetContext(ctx, &cart, getCartQuery, userID); err != nil {
		return nil, errors.Wrap(err, "get created cart")
	}
	return &cart, nil
}

const cartItemsQuery = `SELECT * FROM cart_items WHERE cart_id = ? ORDER BY added_at ASC`

func (s *MySQL) CartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := s.db.SelectContext(ctx, &items, cartItemsQuery, cartID); err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return items, nil
}

const findCartItemQuery = `SELECT * FROM cart_items WHERE cart_id = ? AND product_id = ? AND seller_id = ?`

func (s *MySQL) FindCartItem(ctx context.Context, cartID, productID, sellerID int64) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.db.GetContext(ctx, &item, findCartItemQuery, cartID, productID, sellerID); err != nil {
		if isNoRows(err) {
			return nil, carts.ErrItemNotFound
		}
		return nil, errors.Wrap(err, "find cart item")
	}
	return &item, nil
}

const getCartItemQuery = `SELECT * FROM cart_items WHERE id = ?`

func (s *MySQL) GetCartItem(ctx context.Context, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.db.GetContext(ctx, &item, getCartItemQuery, itemID); err != nil {
		if isNoRows(err) {
			return nil, carts.ErrItemNotFound
		}
		return nil, errors.Wrap(err, "get cart item")
	}
	return &item, nil
}

const insertCartItemQuery = `
	INSERT INTO cart_items (cart_id, product_id, seller_id, quantity, product_name,
	                        product_price, product_stock, product_image, store_name, added_at)
	VALUES (:cart_id, :product_id, :seller_id, :quantity, :product_name,
	        :product_price, :product_stock, :product_image, :store_name, NOW())`

func (s *MySQL) InsertCartItem(ctx context.Context, item *models.CartItem) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, insertCartItemQuery, item)
	if err != nil {
		return 0, errors.Wrap(err, "insert cart item")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "cart item id")
}

const updateCartItemQuantityQuery = `UPDATE cart_items SET quantity = ? WHERE id = ?`

func (s *MySQL) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, updateCartItemQuantityQuery, quantity, itemID)
	return errors.Wrap(err, "update cart item quantity")
}

const deleteCartItemQuery = `DELETE FROM cart_items WHERE id = ?`

func (s *MySQL) DeleteCartItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, deleteCartItemQuery, itemID)
	return errors.Wrap(err, "delete cart item")
}

const clearCartQuery = `DELETE FROM cart_items WHERE cart_id = ?`

func (s *MySQL) ClearCart(ctx context.Context, cartID int64) error {
	_, err := s.db.ExecContext(ctx, clearCartQuery, cartID)
	return errors.Wrap(err, "clear cart")
}

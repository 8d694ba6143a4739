// Package store is the MySQL implementation of the service storage
// interfaces. Checkout writes go through Transact so the stock gate, the
// decrements and the order rows commit or roll back together.
package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pooria159/grosha-backend/checkout"
	"github.com/pooria159/grosha-backend/models"
)

type MySQL struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *MySQL {
	return &MySQL{db: db}
}

// Transact runs fn inside one transaction, rolling back on error or panic.
func (s *MySQL) Transact(ctx context.Context, fn func(tx checkout.TxStore) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

type txStore struct {
	tx *sqlx.Tx
}

const createOrderQuery = `
	INSERT INTO orders (user_id, status, original_price, total_price, created_at, updated_at)
	VALUES (?, 'pending', 0, 0, NOW(), NOW())`

func (t *txStore) CreateOrder(ctx context.Context, userID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, createOrderQuery, userID)
	if err != nil {
		return 0, errors.Wrap(err, "insert order")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "order id")
}

// lockProductQuery takes row locks on the product and its seller so two
// concurrent checkouts of the same product serialize on the stock gate.
const lockProductQuery = `
	SELECT p.id, p.seller_id, p.name, p.price, p.stock, s.shop_name
	FROM products p
	JOIN sellers s ON s.id = p.seller_id
	WHERE p.id = ?
	FOR UPDATE`

func (t *txStore) LockProduct(ctx context.Context, productID int64) (*checkout.ProductRow, error) {
	var row checkout.ProductRow
	if err := t.tx.GetContext(ctx, &row, lockProductQuery, productID); err != nil {
		if isNoRows(err) {
			return nil, &checkout.ProductNotFoundError{ProductID: productID}
		}
		return nil, errors.Wrap(err, "lock product")
	}
	return &row, nil
}

const createOrderItemQuery = `
	INSERT INTO order_items (order_id, product_id, seller_id, quantity, price)
	VALUES (:order_id, :product_id, :seller_id, :quantity, :price)`

func (t *txStore) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	res, err := t.tx.NamedExecContext(ctx, createOrderItemQuery, item)
	if err != nil {
		return errors.Wrap(err, "insert order item")
	}
	item.ID, _ = res.LastInsertId()
	return nil
}

const decrementStockQuery = `UPDATE products SET stock = stock - ? WHERE id = ?`

func (t *txStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx, decrementStockQuery, quantity, productID)
	return errors.Wrap(err, "decrement stock")
}

const setOrderPricesQuery = `
	UPDATE orders SET original_price = ?, total_price = ?, discount_id = ?, updated_at = NOW()
	WHERE id = ?`

func (t *txStore) SetOrderPrices(ctx context.Context, orderID int64, original, total int, discountID *int64) error {
	_, err := t.tx.ExecContext(ctx, setOrderPricesQuery, original, total, discountID, orderID)
	return errors.Wrap(err, "set order prices")
}

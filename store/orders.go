package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pooria159/grosha-backend/models"
	"github.com/pooria159/grosha-backend/orders"
)

const getOrderQuery = `SELECT * FROM orders WHERE id = ?`

func (s *MySQL) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, getOrderQuery, orderID); err != nil {
		if isNoRows(err) {
			return nil, orders.ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return &order, nil
}

// findAccessibleOrderQuery admits the order's owner and any seller who owns
// at least one of its lines. Everyone else sees a not-found.
const findAccessibleOrderQuery = `
	SELECT o.* FROM orders o
	WHERE o.id = ? AND (
		o.user_id = ?
		OR EXISTS (
			SELECT 1 FROM order_items oi
			JOIN sellers s ON s.id = oi.seller_id
			WHERE oi.order_id = o.id AND s.user_id = ?
		)
	)`

func (s *MySQL) FindAccessibleOrder(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	var order models.Order
	if err := s.db.GetContext(ctx, &order, findAccessibleOrderQuery, orderID, userID, userID); err != nil {
		if isNoRows(err) {
			return nil, orders.ErrNotFound
		}
		return nil, errors.Wrap(err, "find accessible order")
	}
	return &order, nil
}

const updateOrderStatusQuery = `UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`

func (s *MySQL) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx, updateOrderStatusQuery, status, orderID)
	return errors.Wrap(err, "update order status")
}

const orderItemDetailsQuery = `
	SELECT oi.product_id, p.name AS product_name, oi.seller_id, s.shop_name AS store_name,
	       oi.quantity, oi.price
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id
	JOIN sellers s ON s.id = oi.seller_id
	WHERE oi.order_id = ?
	ORDER BY oi.id ASC`

const discountSummaryQuery = `SELECT id, code, title, percentage FROM discounts WHERE id = ?`

func (s *MySQL) GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	detail := &models.OrderDetail{
		ID:            order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		OriginalPrice: order.OriginalPrice,
		TotalPrice:    order.TotalPrice,
		CreatedAt:     order.CreatedAt,
		Items:         []models.OrderItemDetail{},
	}

	if order.DiscountID != nil {
		var summary models.DiscountSummary
		if err := s.db.GetContext(ctx, &summary, discountSummaryQuery, *order.DiscountID); err == nil {
			detail.Discount = &summary
		}
	}

	if err := s.db.SelectContext(ctx, &detail.Items, orderItemDetailsQuery, orderID); err != nil {
		return nil, errors.Wrap(err, "get order items")
	}
	for i := range detail.Items {
		detail.Items[i].Subtotal = detail.Items[i].Price * detail.Items[i].Quantity
	}
	return detail, nil
}

const listUserOrdersQuery = `SELECT * FROM orders WHERE user_id = ? ORDER BY created_at DESC`

func (s *MySQL) ListUserOrders(ctx context.Context, userID int64) ([]models.OrderDetail, error) {
	var rows []models.Order
	if err := s.db.SelectContext(ctx, &rows, listUserOrdersQuery, userID); err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}

	out := make([]models.OrderDetail, 0, len(rows))
	for _, order := range rows {
		detail, err := s.GetOrderDetail(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *detail)
	}
	return out, nil
}

// listSellerOrdersQuery pulls only the seller's own lines; the grouping into
// per-order views happens in Go, the same way the user listing does.
const listSellerOrdersQuery = `
	SELECT o.id AS order_id, o.user_id AS customer_id, o.status, o.total_price, o.created_at,
	       oi.product_id, p.name AS product_name, oi.seller_id, s.shop_name AS store_name,
	       oi.quantity, oi.price
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	JOIN products p ON p.id = oi.product_id
	JOIN sellers s ON s.id = oi.seller_id
	WHERE oi.seller_id = ?
	ORDER BY o.created_at DESC, oi.id ASC`

func (s *MySQL) ListSellerOrders(ctx context.Context, sellerID int64) ([]models.SellerOrderView, error) {
	rows, err := s.db.QueryxContext(ctx, listSellerOrdersQuery, sellerID)
	if err != nil {
		return nil, errors.Wrap(err, "list seller orders")
	}
	defer rows.Close()

	views := []models.SellerOrderView{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			view models.SellerOrderView
			item models.OrderItemDetail
		)
		if err := rows.Scan(
			&view.OrderID, &view.CustomerID, &view.Status, &view.TotalPrice, &view.CreatedAt,
			&item.ProductID, &item.ProductName, &item.SellerID, &item.StoreName,
			&item.Quantity, &item.Price,
		); err != nil {
			return nil, errors.Wrap(err, "scan seller order row")
		}
		item.Subtotal = item.Price * item.Quantity

		pos, ok := index[view.OrderID]
		if !ok {
			view.Items = []models.OrderItemDetail{}
			views = append(views, view)
			pos = len(views) - 1
			index[view.OrderID] = pos
		}
		views[pos].Items = append(views[pos].Items, item)
	}
	return views, errors.Wrap(rows.Err(), "iterate seller orders")
}

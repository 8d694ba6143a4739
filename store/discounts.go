package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/pooria159/grosha-backend/discounts"
	"github.com/pooria159/grosha-backend/models"
)

const findActiveByCodeQuery = `
	SELECT d.id, d.seller_id, d.title, d.code, d.description, d.percentage,
	       d.is_active, d.for_first_purchase, d.is_single_use,
	       d.valid_from, d.valid_to, d.min_order_amount, d.created_at, d.updated_at,
	       s.shop_name
	FROM discounts d
	LEFT JOIN sellers s ON s.id = d.seller_id
	WHERE d.code = ? AND d.is_active = 1 AND d.valid_from <= ? AND d.valid_to >= ?`

func (s *MySQL) FindActiveByCode(ctx context.Context, code string, now time.Time) (*discounts.Record, error) {
	var rec discounts.Record
	if err := s.db.GetContext(ctx, &rec, findActiveByCodeQuery, code, now, now); err != nil {
		if isNoRows(err) {
			return nil, discounts.ErrNotFound
		}
		return nil, errors.Wrap(err, "find discount by code")
	}
	return &rec, nil
}

const hasOrderBeforeQuery = `SELECT COUNT(*) FROM orders WHERE user_id = ? AND created_at < ?`

func (s *MySQL) HasOrderBefore(ctx context.Context, userID int64, now time.Time) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, hasOrderBeforeQuery, userID, now); err != nil {
		return false, errors.Wrap(err, "count prior orders")
	}
	return n > 0, nil
}

const hasOrderWithDiscountQuery = `SELECT COUNT(*) FROM orders WHERE user_id = ? AND discount_id = ?`

func (s *MySQL) HasOrderWithDiscount(ctx context.Context, userID, discountID int64) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, hasOrderWithDiscountQuery, userID, discountID); err != nil {
		return false, errors.Wrap(err, "count discount redemptions")
	}
	return n > 0, nil
}

const insertDiscountQuery = `
	INSERT INTO discounts (seller_id, title, code, description, percentage, is_active,
	                       for_first_purchase, is_single_use, valid_from, valid_to,
	                       min_order_amount, created_at, updated_at)
	VALUES (:seller_id, :title, :code, :description, :percentage, :is_active,
	        :for_first_purchase, :is_single_use, :valid_from, :valid_to,
	        :min_order_amount, NOW(), NOW())`

func (s *MySQL) InsertDiscount(ctx context.Context, d *models.Discount) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, insertDiscountQuery, d)
	if err != nil {
		return 0, errors.Wrap(err, "insert discount")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "discount id")
}

const getDiscountQuery = `SELECT * FROM discounts WHERE id = ?`

func (s *MySQL) GetDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	var d models.Discount
	if err := s.db.GetContext(ctx, &d, getDiscountQuery, id); err != nil {
		if isNoRows(err) {
			return nil, discounts.ErrDiscountMissing
		}
		return nil, errors.Wrap(err, "get discount")
	}
	return &d, nil
}

const updateDiscountQuery = `
	UPDATE discounts
	SET seller_id = :seller_id, title = :title, code = :code, description = :description,
	    percentage = :percentage, is_active = :is_active,
	    for_first_purchase = :for_first_purchase, is_single_use = :is_single_use,
	    valid_from = :valid_from, valid_to = :valid_to,
	    min_order_amount = :min_order_amount, updated_at = NOW()
	WHERE id = :id`

func (s *MySQL) UpdateDiscount(ctx context.Context, d *models.Discount) error {
	_, err := s.db.NamedExecContext(ctx, updateDiscountQuery, d)
	return errors.Wrap(err, "update discount")
}

const deactivateDiscountQuery = `UPDATE discounts SET is_active = 0, updated_at = NOW() WHERE id = ?`

func (s *MySQL) DeactivateDiscount(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, deactivateDiscountQuery, id)
	return errors.Wrap(err, "deactivate discount")
}

func (s *MySQL) ListDiscounts(ctx context.Context, f discounts.ListFilter) ([]models.Discount, error) {
	query := `SELECT * FROM discounts WHERE 1 = 1`
	args := []interface{}{}
	if f.Scoped {
		if f.SellerID == nil {
			query += ` AND seller_id IS NULL`
		} else {
			query += ` AND seller_id = ?`
			args = append(args, *f.SellerID)
		}
	}
	if f.OnlyValid {
		query += ` AND is_active = 1 AND valid_from <= NOW() AND valid_to >= NOW()`
	}
	query += ` ORDER BY created_at DESC`

	out := []models.Discount{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return out, nil
}

const findSellerByUserQuery = `SELECT id, user_id, shop_name, is_active FROM sellers WHERE user_id = ?`

// FindSellerByUser is the capability lookup used wherever the API needs to
// know whether the caller runs a shop.
func (s *MySQL) FindSellerByUser(ctx context.Context, userID int64) (*models.Seller, error) {
	var seller models.Seller
	if err := s.db.GetContext(ctx, &seller, findSellerByUserQuery, userID); err != nil {
		if isNoRows(err) {
			return nil, discounts.ErrNoSellerProfile
		}
		return nil, errors.Wrap(err, "find seller by user")
	}
	return &seller, nil
}

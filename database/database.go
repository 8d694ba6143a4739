// Package database owns the MySQL connection and the startup schema.
package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	_ "github.com/go-sql-driver/mysql"

	"github.com/pooria159/grosha-backend/config"
)

// Connect opens the MySQL pool and verifies it with a ping.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mysql")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// schema creates the tables this service owns. RESTRICT on order_items keeps
// products and sellers with order history from being deleted out from under
// their lines.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sellers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		shop_name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		price INT UNSIGNED NOT NULL,
		stock INT UNSIGNED NOT NULL,
		image VARCHAR(512) NULL,
		FOREIGN KEY (seller_id) REFERENCES sellers(id) ON DELETE RESTRICT
	)`,
	`CREATE TABLE IF NOT EXISTS discounts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT NULL,
		title VARCHAR(255) NOT NULL,
		code VARCHAR(50) NOT NULL UNIQUE,
		description TEXT NOT NULL,
		percentage INT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		for_first_purchase BOOLEAN NOT NULL DEFAULT FALSE,
		is_single_use BOOLEAN NOT NULL DEFAULT TRUE,
		valid_from DATETIME NOT NULL,
		valid_to DATETIME NOT NULL,
		min_order_amount INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_discounts_code (code),
		INDEX idx_discounts_is_active (is_active),
		INDEX idx_discounts_valid_to (valid_to),
		FOREIGN KEY (seller_id) REFERENCES sellers(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		status ENUM('pending','completed','cancelled') NOT NULL DEFAULT 'pending',
		original_price INT NOT NULL DEFAULT 0,
		total_price INT NOT NULL DEFAULT 0,
		discount_id BIGINT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_orders_user (user_id),
		FOREIGN KEY (discount_id) REFERENCES discounts(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		quantity INT UNSIGNED NOT NULL,
		price INT NOT NULL,
		UNIQUE KEY uq_order_product_seller (order_id, product_id, seller_id),
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT,
		FOREIGN KEY (seller_id) REFERENCES sellers(id) ON DELETE RESTRICT
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		cart_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		seller_id BIGINT NOT NULL,
		quantity INT UNSIGNED NOT NULL DEFAULT 1,
		product_name VARCHAR(255) NOT NULL,
		product_price INT NOT NULL,
		product_stock INT NOT NULL,
		product_image VARCHAR(512) NULL,
		store_name VARCHAR(255) NOT NULL,
		added_at DATETIME NOT NULL,
		UNIQUE KEY uq_cart_product_seller (cart_id, product_id, seller_id),
		FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE
	)`,
}

// Migrate applies the schema. Statements are idempotent so this runs on
// every boot.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}

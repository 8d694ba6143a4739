// Package pricing derives order totals. All amounts are integer currency
// units; discounted totals round down.
package pricing

import (
	"github.com/pooria159/grosha-backend/models"
)

// Quote computes the order prices for a subtotal and a discount percentage.
// A percentage of 0 means no discount. Integer division keeps the floor
// semantics: total = subtotal * (100 - percentage) / 100.
func Quote(subtotal, percentage int) (original, total int) {
	original = subtotal
	if percentage <= 0 {
		return original, subtotal
	}
	if percentage > 100 {
		percentage = 100
	}
	return original, subtotal * (100 - percentage) / 100
}

// Subtotal sums captured price * quantity over order lines.
func Subtotal(items []models.OrderItem) int {
	sum := 0
	for _, item := range items {
		sum += item.Price * item.Quantity
	}
	return sum
}

package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/checkout"
	"github.com/pooria159/grosha-backend/config"
	"github.com/pooria159/grosha-backend/idempotency"
	"github.com/pooria159/grosha-backend/middlewares"
	"github.com/pooria159/grosha-backend/models"
	"github.com/pooria159/grosha-backend/rabbitmq"
)

const highPriorityTotal = 1000000

type CheckoutController struct {
	checkout *checkout.Service
	guard    *idempotency.Guard
	rmq      *rabbitmq.RabbitMQ
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewCheckoutController(svc *checkout.Service, guard *idempotency.Guard, rmq *rabbitmq.RabbitMQ, cfg *config.Config, logger zerolog.Logger) *CheckoutController {
	return &CheckoutController{checkout: svc, guard: guard, rmq: rmq, cfg: cfg, logger: logger}
}

type checkoutRequest struct {
	Items        []checkout.LineItem `json:"items" binding:"required"`
	DiscountCode string              `json:"discount_code"`
	StoreID      string              `json:"store_id"`
}

// Checkout converts the submitted line items into an order. An optional
// Idempotency-Key header guards against replays; the key is released again
// when checkout fails so the client can retry.
func (ctl *CheckoutController) Checkout(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordOperation("checkout", success) }()

	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")
	if idemKey != "" && ctl.guard != nil {
		claimed, err := ctl.guard.Claim(c.Request.Context(), idemKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Idempotency check failed"})
			return
		}
		if !claimed {
			c.JSON(http.StatusConflict, gin.H{"error": "Request with this idempotency key was already processed"})
			return
		}
	}

	order, err := ctl.checkout.Checkout(c.Request.Context(), userID, checkout.Request{
		Items:        req.Items,
		DiscountCode: req.DiscountCode,
		StoreID:      req.StoreID,
	})
	if err != nil {
		if idemKey != "" && ctl.guard != nil {
			_ = ctl.guard.Release(c.Request.Context(), idemKey)
		}
		ctl.renderCheckoutError(c, err)
		return
	}
	success = true

	c.JSON(http.StatusCreated, order)
	ctl.publishOrderEvents(order)
}

func (ctl *CheckoutController) renderCheckoutError(c *gin.Context, err error) {
	var (
		quantityErr *checkout.QuantityError
		notFoundErr *checkout.ProductNotFoundError
		stockErr    *checkout.InsufficientStockError
		discountErr *checkout.DiscountRejectedError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &quantityErr), errors.As(err, &stockErr), errors.As(err, &discountErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctl.logger.Error().Err(err).Msg("checkout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
	}
}

// publishOrderEvents emits the created event and schedules the delayed
// payment check. Both are best-effort; the order is already committed.
func (ctl *CheckoutController) publishOrderEvents(order *models.OrderDetail) {
	if ctl.rmq == nil {
		return
	}

	event := models.OrderEvent{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Type:     "created",
		Status:   order.Status,
		Total:    order.TotalPrice,
		Occurred: time.Now(),
	}

	priority := 5
	if order.TotalPrice > highPriorityTotal {
		priority = 9
	}
	if err := ctl.rmq.PublishOrderEvent(event, priority); err != nil {
		ctl.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to publish created event")
	}

	check := event
	check.Type = "payment_check"
	if err := ctl.rmq.PublishDelayedEvent(check, ctl.cfg.PaymentTimeout); err != nil {
		ctl.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to schedule payment check")
	}
}

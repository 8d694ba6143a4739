package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/middlewares"
	"github.com/pooria159/grosha-backend/models"
	"github.com/pooria159/grosha-backend/orders"
	"github.com/pooria159/grosha-backend/rabbitmq"
)

type OrderController struct {
	orders *orders.Service
	rmq    *rabbitmq.RabbitMQ
	logger zerolog.Logger
}

func NewOrderController(svc *orders.Service, rmq *rabbitmq.RabbitMQ, logger zerolog.Logger) *OrderController {
	return &OrderController{orders: svc, rmq: rmq, logger: logger}
}

// List returns the caller's orders, newest first.
func (ctl *OrderController) List(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordOperation("list", success) }()

	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	out, err := ctl.orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		ctl.logger.Error().Err(err).Msg("list orders failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	success = true
	c.JSON(http.StatusOK, out)
}

// SellerOrders returns orders containing lines sold by the caller's shop.
func (ctl *OrderController) SellerOrders(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordOperation("seller_orders", success) }()

	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	out, err := ctl.orders.ListForSeller(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, orders.ErrNoSellerProfile) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		ctl.logger.Error().Err(err).Msg("seller orders failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	success = true
	c.JSON(http.StatusOK, out)
}

// Details returns one order for its owner or an involved seller.
func (ctl *OrderController) Details(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordOperation("details", success) }()

	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	detail, err := ctl.orders.Detail(c.Request.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ctl.logger.Error().Err(err).Msg("order details failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	success = true
	c.JSON(http.StatusOK, detail)
}

// UpdateStatus moves an order through the lifecycle machine.
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordOperation("update_status", success) }()

	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.orders.UpdateStatus(c.Request.Context(), orderID, userID, req.Status)
	if err != nil {
		var transitionErr *orders.TransitionError
		switch {
		case errors.Is(err, orders.ErrInvalidStatus), errors.As(err, &transitionErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, orders.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			ctl.logger.Error().Err(err).Msg("status update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	success = true

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + req.Status, "order_id": orderID})

	if ctl.rmq != nil {
		priority := 5
		if req.Status == models.StatusCancelled {
			priority = 8
		}
		event := models.OrderEvent{
			OrderID:  orderID,
			UserID:   order.UserID,
			Type:     "status_updated",
			Status:   req.Status,
			Total:    order.TotalPrice,
			Occurred: time.Now(),
		}
		if err := ctl.rmq.PublishOrderEvent(event, priority); err != nil {
			ctl.logger.Warn().Err(err).Int64("order_id", orderID).Msg("failed to publish status event")
		}
	}
}

// HandleDeadLetter accepts dead-lettered order events for manual follow-up.
func (ctl *OrderController) HandleDeadLetter(c *gin.Context) {
	var deadLetter struct {
		OrderID int64  `json:"order_id"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&deadLetter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctl.logger.Warn().Int64("order_id", deadLetter.OrderID).Str("reason", deadLetter.Reason).Msg("dead letter received")
	c.JSON(http.StatusOK, gin.H{"message": "Dead letter processed"})
}

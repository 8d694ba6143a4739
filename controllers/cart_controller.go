package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/carts"
	"github.com/pooria159/grosha-backend/middlewares"
)

type CartController struct {
	carts  *carts.Service
	logger zerolog.Logger
}

func NewCartController(svc *carts.Service, logger zerolog.Logger) *CartController {
	return &CartController{carts: svc, logger: logger}
}

// Detail returns the caller's cart, creating it on first access.
func (ctl *CartController) Detail(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	detail, err := ctl.carts.Detail(c.Request.Context(), userID)
	if err != nil {
		ctl.logger.Error().Err(err).Msg("cart detail failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	SellerID  int64 `json:"seller_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// AddItem puts a product in the cart or bumps its quantity.
func (ctl *CartController) AddItem(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := ctl.carts.AddItem(c.Request.Context(), userID, req.ProductID, req.SellerID, req.Quantity)
	if err != nil {
		ctl.renderCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateItem changes the quantity of an item the caller owns.
func (ctl *CartController) UpdateItem(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := ctl.carts.UpdateQuantity(c.Request.Context(), userID, itemID, req.Quantity)
	if err != nil {
		ctl.renderCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RemoveItem deletes one item from the caller's cart.
func (ctl *CartController) RemoveItem(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	if err := ctl.carts.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		ctl.renderCartError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear empties the caller's cart.
func (ctl *CartController) Clear(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := ctl.carts.Clear(c.Request.Context(), userID); err != nil {
		ctl.logger.Error().Err(err).Msg("clear cart failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckoutItems returns the cart reshaped as a checkout payload. The client
// decides whether to submit it; cart and checkout stay decoupled.
func (ctl *CartController) CheckoutItems(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	items, err := ctl.carts.CheckoutItems(c.Request.Context(), userID)
	if err != nil {
		ctl.logger.Error().Err(err).Msg("cart checkout items failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (ctl *CartController) renderCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, carts.ErrQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, carts.ErrProductNotFound), errors.Is(err, carts.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctl.logger.Error().Err(err).Msg("cart operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/discounts"
	"github.com/pooria159/grosha-backend/middlewares"
	"github.com/pooria159/grosha-backend/models"
)

type DiscountController struct {
	resolver *discounts.Resolver
	manager  *discounts.Manager
	logger   zerolog.Logger
}

func NewDiscountController(resolver *discounts.Resolver, manager *discounts.Manager, logger zerolog.Logger) *DiscountController {
	return &DiscountController{resolver: resolver, manager: manager, logger: logger}
}

type applyRequest struct {
	Code       string `json:"code" binding:"required"`
	SellerID   string `json:"seller_id"`
	StoreID    string `json:"store_id"`
	OrderTotal int    `json:"order_total"`
}

// Apply previews a discount against an order total without redeeming
// anything. Each failure branch gets its own message.
func (ctl *DiscountController) Apply(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount code is required"})
		return
	}

	storeID := req.SellerID
	if storeID == "" {
		storeID = req.StoreID
	}

	terms, err := ctl.resolver.Resolve(c.Request.Context(), req.Code, storeID, req.OrderTotal, userID, time.Now())
	if err != nil {
		ctl.renderResolveError(c, err)
		return
	}

	middlewares.RecordDiscountResolution("applied")
	c.JSON(http.StatusOK, terms)
}

func (ctl *DiscountController) renderResolveError(c *gin.Context, err error) {
	var belowMin *discounts.BelowMinimumError
	switch {
	case errors.As(err, &belowMin):
		middlewares.RecordDiscountResolution("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": belowMin.Error(), "min_order_amount": belowMin.Min})
	case errors.Is(err, discounts.ErrNotFound):
		middlewares.RecordDiscountResolution("not_found")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, discounts.ErrWrongStore),
		errors.Is(err, discounts.ErrInvalidStoreID),
		errors.Is(err, discounts.ErrFirstPurchaseOnly),
		errors.Is(err, discounts.ErrAlreadyUsed):
		middlewares.RecordDiscountResolution("rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ctl.logger.Error().Err(err).Msg("discount resolution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Discount check failed"})
	}
}

type discountRequest struct {
	Title            string    `json:"title" binding:"required"`
	Code             string    `json:"code" binding:"required"`
	Description      string    `json:"description"`
	Percentage       int       `json:"percentage" binding:"required"`
	ForFirstPurchase bool      `json:"for_first_purchase"`
	IsSingleUse      *bool     `json:"is_single_use"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidTo          time.Time `json:"valid_to" binding:"required"`
	MinOrderAmount   int       `json:"min_order_amount"`
	SellerID         *int64    `json:"seller_id"`
}

func (req *discountRequest) toModel() *models.Discount {
	singleUse := true
	if req.IsSingleUse != nil {
		singleUse = *req.IsSingleUse
	}
	validFrom := req.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now()
	}
	return &models.Discount{
		SellerID:         req.SellerID,
		Title:            req.Title,
		Code:             req.Code,
		Description:      req.Description,
		Percentage:       req.Percentage,
		ForFirstPurchase: req.ForFirstPurchase,
		IsSingleUse:      singleUse,
		ValidFrom:        validFrom,
		ValidTo:          req.ValidTo,
		MinOrderAmount:   req.MinOrderAmount,
	}
}

// Create registers a new discount in the caller's scope.
func (ctl *DiscountController) Create(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := ctl.manager.Create(c.Request.Context(), userID, middlewares.CallerIsStaff(c), req.toModel())
	if err != nil {
		ctl.renderManagerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update edits a discount within the caller's scope.
func (ctl *DiscountController) Update(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid discount ID"})
		return
	}

	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := req.toModel()
	d.ID = id
	if err := ctl.manager.Update(c.Request.Context(), userID, middlewares.CallerIsStaff(c), d); err != nil {
		ctl.renderManagerError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Deactivate soft-deletes a discount.
func (ctl *DiscountController) Deactivate(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid discount ID"})
		return
	}

	if err := ctl.manager.Deactivate(c.Request.Context(), userID, middlewares.CallerIsStaff(c), id); err != nil {
		ctl.renderManagerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Discount deactivated"})
}

// List returns the discounts visible to the caller.
func (ctl *DiscountController) List(c *gin.Context) {
	userID, ok := middlewares.CallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	out, err := ctl.manager.List(c.Request.Context(), userID, middlewares.CallerIsStaff(c))
	if err != nil {
		ctl.logger.Error().Err(err).Msg("list discounts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Active returns all currently active discounts.
func (ctl *DiscountController) Active(c *gin.Context) {
	out, err := ctl.manager.ListActive(c.Request.Context())
	if err != nil {
		ctl.logger.Error().Err(err).Msg("list active discounts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ctl *DiscountController) renderManagerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, discounts.ErrPercentageRange), errors.Is(err, discounts.ErrValidityWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, discounts.ErrNoSellerProfile), errors.Is(err, discounts.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, discounts.ErrDiscountMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		ctl.logger.Error().Err(err).Msg("discount write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

package discounts

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/models"
)

var (
	ErrPercentageRange = errors.New("percentage must be between 1 and 100")
	ErrValidityWindow  = errors.New("valid_from must be before valid_to")
	ErrNoSellerProfile = errors.New("caller has no seller profile")
	ErrAccessDenied    = errors.New("discount belongs to another shop")
	ErrDiscountMissing = errors.New("discount not found")
)

// RecomputeActive aligns is_active with the validity window. The write path
// calls it before every insert, and before an update whenever valid_to
// changed, so the flag never has to be maintained by hand.
func RecomputeActive(d *models.Discount, now time.Time) {
	d.IsActive = !now.Before(d.ValidFrom) && !now.After(d.ValidTo)
}

// ListFilter narrows discount listings. A nil SellerID with Scoped unset
// means no seller restriction.
type ListFilter struct {
	SellerID  *int64
	Scoped    bool
	OnlyValid bool
}

type ManagerStore interface {
	InsertDiscount(ctx context.Context, d *models.Discount) (int64, error)
	GetDiscount(ctx context.Context, id int64) (*models.Discount, error)
	UpdateDiscount(ctx context.Context, d *models.Discount) error
	DeactivateDiscount(ctx context.Context, id int64) error
	ListDiscounts(ctx context.Context, f ListFilter) ([]models.Discount, error)
	FindSellerByUser(ctx context.Context, userID int64) (*models.Seller, error)
}

// Manager owns discount CRUD. Sellers operate on their own shop's codes;
// staff operate marketplace-wide. Deactivation is the delete mechanism.
type Manager struct {
	store  ManagerStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewManager(store ManagerStore, logger zerolog.Logger) *Manager {
	return &Manager{store: store, logger: logger, now: time.Now}
}

func validate(d *models.Discount) error {
	if d.Percentage < 1 || d.Percentage > 100 {
		return ErrPercentageRange
	}
	if !d.ValidFrom.Before(d.ValidTo) {
		return ErrValidityWindow
	}
	return nil
}

// Create persists a new discount. Non-staff callers must own a shop and the
// discount is forced into that shop's scope; staff may create shop-scoped or
// marketplace-wide codes.
func (m *Manager) Create(ctx context.Context, userID int64, isStaff bool, d *models.Discount) (*models.Discount, error) {
	if !isStaff {
		seller, err := m.store.FindSellerByUser(ctx, userID)
		if err != nil {
			return nil, ErrNoSellerProfile
		}
		d.SellerID = &seller.ID
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	RecomputeActive(d, m.now())

	id, err := m.store.InsertDiscount(ctx, d)
	if err != nil {
		return nil, err
	}
	d.ID = id
	m.logger.Info().Int64("discount_id", id).Str("code", d.Code).Msg("discount created")
	return d, nil
}

// Update edits an existing discount within the caller's scope. is_active is
// recomputed when the validity end moves.
func (m *Manager) Update(ctx context.Context, userID int64, isStaff bool, d *models.Discount) error {
	current, err := m.store.GetDiscount(ctx, d.ID)
	if err != nil {
		return ErrDiscountMissing
	}
	if err := m.authorize(ctx, userID, isStaff, current); err != nil {
		return err
	}
	if !isStaff {
		d.SellerID = current.SellerID
	}
	if err := validate(d); err != nil {
		return err
	}
	if !current.ValidTo.Equal(d.ValidTo) {
		RecomputeActive(d, m.now())
	}
	return m.store.UpdateDiscount(ctx, d)
}

// Deactivate soft-deletes a discount.
func (m *Manager) Deactivate(ctx context.Context, userID int64, isStaff bool, id int64) error {
	current, err := m.store.GetDiscount(ctx, id)
	if err != nil {
		return ErrDiscountMissing
	}
	if err := m.authorize(ctx, userID, isStaff, current); err != nil {
		return err
	}
	return m.store.DeactivateDiscount(ctx, id)
}

// List returns the discounts visible to the caller: everything for staff,
// a seller's own currently-valid codes for sellers, nothing otherwise.
func (m *Manager) List(ctx context.Context, userID int64, isStaff bool) ([]models.Discount, error) {
	if isStaff {
		return m.store.ListDiscounts(ctx, ListFilter{})
	}
	seller, err := m.store.FindSellerByUser(ctx, userID)
	if err != nil {
		return []models.Discount{}, nil
	}
	return m.store.ListDiscounts(ctx, ListFilter{SellerID: &seller.ID, Scoped: true, OnlyValid: true})
}

// ListActive returns all currently active discounts, for any caller.
func (m *Manager) ListActive(ctx context.Context) ([]models.Discount, error) {
	return m.store.ListDiscounts(ctx, ListFilter{OnlyValid: true})
}

func (m *Manager) authorize(ctx context.Context, userID int64, isStaff bool, d *models.Discount) error {
	if isStaff {
		return nil
	}
	seller, err := m.store.FindSellerByUser(ctx, userID)
	if err != nil {
		return ErrNoSellerProfile
	}
	if d.SellerID == nil || *d.SellerID != seller.ID {
		return ErrAccessDenied
	}
	return nil
}

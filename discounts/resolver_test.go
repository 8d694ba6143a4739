package discounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooria159/grosha-backend/models"
)

type fakeResolverStore struct {
	records      map[string]*Record
	priorOrders  map[int64]bool
	redemptions  map[int64]map[int64]bool // userID -> discountID
	lookupCalls  int
}

func (s *fakeResolverStore) FindActiveByCode(_ context.Context, code string, now time.Time) (*Record, error) {
	s.lookupCalls++
	rec, ok := s.records[code]
	if !ok || !rec.IsActive || now.Before(rec.ValidFrom) || now.After(rec.ValidTo) {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *fakeResolverStore) HasOrderBefore(_ context.Context, userID int64, _ time.Time) (bool, error) {
	return s.priorOrders[userID], nil
}

func (s *fakeResolverStore) HasOrderWithDiscount(_ context.Context, userID, discountID int64) (bool, error) {
	return s.redemptions[userID][discountID], nil
}

func newResolverFixture() (*Resolver, *fakeResolverStore, time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeResolverStore{
		records:     map[string]*Record{},
		priorOrders: map[int64]bool{},
		redemptions: map[int64]map[int64]bool{},
	}
	return NewResolver(store, zerolog.Nop()), store, now
}

func marketDiscount(id int64, code string, now time.Time) *Record {
	return &Record{Discount: models.Discount{
		ID:         id,
		Title:      "Summer sale",
		Code:       code,
		Percentage: 20,
		IsActive:   true,
		ValidFrom:  now.Add(-time.Hour),
		ValidTo:    now.Add(time.Hour),
	}}
}

func TestResolveUnknownCode(t *testing.T) {
	resolver, store, now := newResolverFixture()

	_, err := resolver.Resolve(context.Background(), "NOPE", "", 1000, 1, now)
	require.ErrorIs(t, err, ErrNotFound)

	// Failed resolution leaves no state behind; the same call fails the
	// same way again.
	_, err2 := resolver.Resolve(context.Background(), "NOPE", "", 1000, 1, now)
	require.ErrorIs(t, err2, ErrNotFound)
	assert.Equal(t, 2, store.lookupCalls)
}

func TestResolveExpiredAndInactive(t *testing.T) {
	resolver, store, now := newResolverFixture()

	expired := marketDiscount(1, "OLD", now)
	expired.ValidTo = now.Add(-time.Minute)
	store.records["OLD"] = expired

	inactive := marketDiscount(2, "OFF", now)
	inactive.IsActive = false
	store.records["OFF"] = inactive

	_, err := resolver.Resolve(context.Background(), "OLD", "", 1000, 1, now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = resolver.Resolve(context.Background(), "OFF", "", 1000, 1, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveBelowMinimum(t *testing.T) {
	resolver, store, now := newResolverFixture()

	rec := marketDiscount(1, "BIG", now)
	rec.MinOrderAmount = 5000
	store.records["BIG"] = rec

	_, err := resolver.Resolve(context.Background(), "BIG", "", 3000, 1, now)

	var belowMin *BelowMinimumError
	require.ErrorAs(t, err, &belowMin)
	assert.Equal(t, 5000, belowMin.Min)
}

func TestResolveMinimumCheckedBeforeStoreScope(t *testing.T) {
	resolver, store, now := newResolverFixture()

	sellerID := int64(9)
	rec := marketDiscount(1, "SHOP", now)
	rec.SellerID = &sellerID
	rec.MinOrderAmount = 5000
	store.records["SHOP"] = rec

	// Fails both checks; the minimum-amount branch runs first.
	_, err := resolver.Resolve(context.Background(), "SHOP", "oops", 3000, 1, now)

	var belowMin *BelowMinimumError
	require.ErrorAs(t, err, &belowMin)
}

func TestResolveStoreScope(t *testing.T) {
	resolver, store, now := newResolverFixture()

	sellerID := int64(9)
	shop := "Tech Shop"
	rec := marketDiscount(1, "SHOP", now)
	rec.SellerID = &sellerID
	rec.ShopName = &shop
	store.records["SHOP"] = rec

	t.Run("wrong store", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "SHOP", "8", 1000, 1, now)
		assert.ErrorIs(t, err, ErrWrongStore)
	})

	t.Run("malformed store id", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "SHOP", "not-a-number", 1000, 1, now)
		assert.ErrorIs(t, err, ErrInvalidStoreID)
	})

	t.Run("missing store id", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "SHOP", "", 1000, 1, now)
		assert.ErrorIs(t, err, ErrInvalidStoreID)
	})

	t.Run("matching store", func(t *testing.T) {
		terms, err := resolver.Resolve(context.Background(), "SHOP", "9", 1000, 1, now)
		require.NoError(t, err)
		require.NotNil(t, terms.SellerID)
		assert.Equal(t, sellerID, *terms.SellerID)
		require.NotNil(t, terms.ShopName)
		assert.Equal(t, shop, *terms.ShopName)
	})
}

func TestResolveFirstPurchaseOnly(t *testing.T) {
	resolver, store, now := newResolverFixture()

	rec := marketDiscount(1, "WELCOME", now)
	rec.ForFirstPurchase = true
	store.records["WELCOME"] = rec
	store.priorOrders[1] = true

	_, err := resolver.Resolve(context.Background(), "WELCOME", "", 1000, 1, now)
	assert.ErrorIs(t, err, ErrFirstPurchaseOnly)

	terms, err := resolver.Resolve(context.Background(), "WELCOME", "", 1000, 2, now)
	require.NoError(t, err)
	assert.True(t, terms.ForFirstPurchase)
}

func TestResolveSingleUse(t *testing.T) {
	resolver, store, now := newResolverFixture()

	rec := marketDiscount(7, "ONCE", now)
	rec.IsSingleUse = true
	store.records["ONCE"] = rec
	store.redemptions[1] = map[int64]bool{7: true}

	_, err := resolver.Resolve(context.Background(), "ONCE", "", 1000, 1, now)
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	// A different user may still redeem the same code.
	terms, err := resolver.Resolve(context.Background(), "ONCE", "", 1000, 2, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), terms.ID)
}

func TestResolveSuccessTerms(t *testing.T) {
	resolver, store, now := newResolverFixture()

	rec := marketDiscount(3, "SAVE20", now)
	rec.Description = "twenty percent off"
	rec.MinOrderAmount = 500
	store.records["SAVE20"] = rec

	terms, err := resolver.Resolve(context.Background(), "SAVE20", "", 1000, 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), terms.ID)
	assert.Equal(t, "SAVE20", terms.Code)
	assert.Equal(t, "Summer sale", terms.Title)
	assert.Equal(t, 20, terms.Percentage)
	assert.Equal(t, "twenty percent off", terms.Description)
	assert.Equal(t, 500, terms.MinOrderAmount)
	assert.Nil(t, terms.SellerID)

	// Resolution is a pure read.
	assert.False(t, errors.Is(err, ErrAlreadyUsed))
	assert.Empty(t, store.redemptions[1])
}

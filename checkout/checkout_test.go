package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooria159/grosha-backend/discounts"
	"github.com/pooria159/grosha-backend/models"
)

// fakeStore models the transactional store: the mutex stands in for row
// locks (one checkout at a time touches products), and transaction buffers
// are only applied on commit.
type fakeStore struct {
	mu          sync.Mutex
	products    map[int64]*ProductRow
	orders      map[int64]*fakeOrder
	items       []models.OrderItem
	nextOrderID int64
}

type fakeOrder struct {
	ID            int64
	UserID        int64
	OriginalPrice int
	TotalPrice    int
	DiscountID    *int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:    map[int64]*ProductRow{},
		orders:      map[int64]*fakeOrder{},
		nextOrderID: 1,
	}
}

func (s *fakeStore) addProduct(id, sellerID int64, name string, price, stock int) {
	s.products[id] = &ProductRow{
		Product:  models.Product{ID: id, SellerID: sellerID, Name: name, Price: price, Stock: stock},
		ShopName: "Shop " + name,
	}
}

func (s *fakeStore) Transact(_ context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &fakeTx{store: s, stockDeltas: map[int64]int{}}
	if err := fn(tx); err != nil {
		return err // nothing applied, transaction buffers dropped
	}

	// commit
	for _, order := range tx.orders {
		s.orders[order.ID] = order
	}
	s.items = append(s.items, tx.items...)
	for productID, delta := range tx.stockDeltas {
		s.products[productID].Stock -= delta
	}
	return nil
}

type fakeTx struct {
	store       *fakeStore
	orders      []*fakeOrder
	items       []models.OrderItem
	stockDeltas map[int64]int
}

func (t *fakeTx) CreateOrder(_ context.Context, userID int64) (int64, error) {
	id := t.store.nextOrderID
	t.store.nextOrderID++
	t.orders = append(t.orders, &fakeOrder{ID: id, UserID: userID})
	return id, nil
}

func (t *fakeTx) LockProduct(_ context.Context, productID int64) (*ProductRow, error) {
	row, ok := t.store.products[productID]
	if !ok {
		return nil, &ProductNotFoundError{ProductID: productID}
	}
	copied := *row
	// Uncommitted decrements from this transaction are visible.
	copied.Stock -= t.stockDeltas[productID]
	return &copied, nil
}

func (t *fakeTx) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	t.items = append(t.items, *item)
	return nil
}

func (t *fakeTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	t.stockDeltas[productID] += quantity
	return nil
}

func (t *fakeTx) SetOrderPrices(_ context.Context, orderID int64, original, total int, discountID *int64) error {
	for _, order := range t.orders {
		if order.ID == orderID {
			order.OriginalPrice = original
			order.TotalPrice = total
			order.DiscountID = discountID
		}
	}
	return nil
}

type fakeResolver struct {
	terms *discounts.Terms
	err   error
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, _, _ string, _ int, _ int64, _ time.Time) (*discounts.Terms, error) {
	r.calls++
	return r.terms, r.err
}

func newService(store *fakeStore, resolver Resolver, strict bool) *Service {
	return NewService(store, resolver, strict, zerolog.Nop())
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newService(newFakeStore(), &fakeResolver{}, false)

	_, err := svc.Checkout(context.Background(), 1, Request{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutNonPositiveQuantity(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	svc := newService(store, &fakeResolver{}, false)

	_, err := svc.Checkout(context.Background(), 1, Request{Items: []LineItem{{ProductID: 1, Quantity: 0}}})

	var quantityErr *QuantityError
	require.ErrorAs(t, err, &quantityErr)
	assert.Equal(t, int64(1), quantityErr.ProductID)
	assert.Empty(t, store.orders)
}

func TestCheckoutSuccessNoDiscount(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	svc := newService(store, &fakeResolver{}, false)

	order, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{{ProductID: 1, Quantity: 3}}})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 3000, order.OriginalPrice)
	assert.Equal(t, 3000, order.TotalPrice)
	assert.Nil(t, order.Discount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Keyboard", order.Items[0].ProductName)
	assert.Equal(t, int64(5), order.Items[0].SellerID)
	assert.Equal(t, 1000, order.Items[0].Price)
	assert.Equal(t, 3000, order.Items[0].Subtotal)

	assert.Equal(t, 7, store.products[1].Stock)
	require.Len(t, store.items, 1)
	assert.Equal(t, 1000, store.items[0].Price)
	assert.Nil(t, store.orders[order.ID].DiscountID)
}

func TestCheckoutSubtotalMatchesLines(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	store.addProduct(2, 6, "Mouse", 250, 4)
	svc := newService(store, &fakeResolver{}, false)

	order, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}})
	require.NoError(t, err)

	sum := 0
	for _, item := range order.Items {
		sum += item.Price * item.Quantity
	}
	assert.Equal(t, order.OriginalPrice, sum)
	assert.Equal(t, 2750, order.OriginalPrice)
}

func TestCheckoutWithDiscount(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	resolver := &fakeResolver{terms: &discounts.Terms{ID: 3, Code: "SAVE20", Title: "Summer sale", Percentage: 20}}
	svc := newService(store, resolver, false)

	order, err := svc.Checkout(context.Background(), 7, Request{
		Items:        []LineItem{{ProductID: 1, Quantity: 3}},
		DiscountCode: "SAVE20",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, order.OriginalPrice)
	assert.Equal(t, 2400, order.TotalPrice) // floor(3000 * 0.8)
	require.NotNil(t, order.Discount)
	assert.Equal(t, int64(3), order.Discount.ID)
	require.NotNil(t, store.orders[order.ID].DiscountID)
	assert.Equal(t, int64(3), *store.orders[order.ID].DiscountID)
}

func TestCheckoutNoCodeSkipsResolver(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	resolver := &fakeResolver{}
	svc := newService(store, resolver, false)

	_, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
}

func TestCheckoutDiscountFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	resolver := &fakeResolver{err: &discounts.BelowMinimumError{Min: 5000}}
	svc := newService(store, resolver, false)

	order, err := svc.Checkout(context.Background(), 7, Request{
		Items:        []LineItem{{ProductID: 1, Quantity: 3}},
		DiscountCode: "BIG",
	})
	require.NoError(t, err)

	// Order proceeds undiscounted.
	assert.Equal(t, 3000, order.OriginalPrice)
	assert.Equal(t, 3000, order.TotalPrice)
	assert.Nil(t, order.Discount)
	assert.Nil(t, store.orders[order.ID].DiscountID)
}

func TestCheckoutDiscountFailureStrict(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	resolver := &fakeResolver{err: discounts.ErrAlreadyUsed}
	svc := newService(store, resolver, true)

	_, err := svc.Checkout(context.Background(), 7, Request{
		Items:        []LineItem{{ProductID: 1, Quantity: 3}},
		DiscountCode: "ONCE",
	})

	var rejected *DiscountRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, discounts.ErrAlreadyUsed)

	// The whole transaction rolled back.
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
	assert.Equal(t, 10, store.products[1].Stock)
}

func TestCheckoutUnknownCodeProceedsEvenStrict(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	resolver := &fakeResolver{err: discounts.ErrNotFound}
	svc := newService(store, resolver, true)

	order, err := svc.Checkout(context.Background(), 7, Request{
		Items:        []LineItem{{ProductID: 1, Quantity: 1}},
		DiscountCode: "NOPE",
	})
	require.NoError(t, err)
	assert.Nil(t, order.Discount)
}

func TestCheckoutProductNotFound(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	svc := newService(store, &fakeResolver{}, false)

	_, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 42, Quantity: 1},
	}})

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(42), notFound.ProductID)

	// The first line's decrement rolled back with everything else.
	assert.Equal(t, 10, store.products[1].Stock)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 10)
	store.addProduct(2, 6, "Mouse", 250, 2)
	svc := newService(store, &fakeResolver{}, false)

	_, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 5},
	}})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Mouse", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// No partial order survives.
	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
	assert.Equal(t, 10, store.products[1].Stock)
	assert.Equal(t, 2, store.products[2].Stock)
}

func TestCheckoutDuplicateLineSeesOwnDecrement(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 5)
	svc := newService(store, &fakeResolver{}, false)

	// 3 + 3 > 5: the second line must observe the first line's decrement.
	_, err := svc.Checkout(context.Background(), 7, Request{Items: []LineItem{
		{ProductID: 1, Quantity: 3},
		{ProductID: 1, Quantity: 3},
	}})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, store.products[1].Stock)
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	store := newFakeStore()
	store.addProduct(1, 5, "Keyboard", 1000, 1)
	svc := newService(store, &fakeResolver{}, false)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), userID, Request{Items: []LineItem{{ProductID: 1, Quantity: 1}}})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		stockFailures++
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, 0, store.products[1].Stock)
}

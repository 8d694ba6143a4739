package orders

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pooria159/grosha-backend/models"
)

type fakeOrderStore struct {
	orders  map[int64]*models.Order
	access  map[int64][]int64 // orderID -> userIDs allowed
	sellers map[int64]*models.Seller
	views   map[int64][]models.SellerOrderView
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:  map[int64]*models.Order{},
		access:  map[int64][]int64{},
		sellers: map[int64]*models.Seller{},
		views:   map[int64][]models.SellerOrderView{},
	}
}

func (s *fakeOrderStore) addOrder(id, userID int64, status string) {
	s.orders[id] = &models.Order{ID: id, UserID: userID, Status: status}
	s.access[id] = append(s.access[id], userID)
}

func (s *fakeOrderStore) FindAccessibleOrder(_ context.Context, orderID, userID int64) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, allowed := range s.access[orderID] {
		if allowed == userID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeOrderStore) GetOrder(_ context.Context, orderID int64) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	s.orders[orderID].Status = status
	return nil
}

func (s *fakeOrderStore) GetOrderDetail(_ context.Context, orderID int64) (*models.OrderDetail, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.OrderDetail{ID: order.ID, UserID: order.UserID, Status: order.Status}, nil
}

func (s *fakeOrderStore) ListUserOrders(_ context.Context, userID int64) ([]models.OrderDetail, error) {
	out := []models.OrderDetail{}
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, models.OrderDetail{ID: order.ID, UserID: userID, Status: order.Status})
		}
	}
	return out, nil
}

func (s *fakeOrderStore) ListSellerOrders(_ context.Context, sellerID int64) ([]models.SellerOrderView, error) {
	return s.views[sellerID], nil
}

func (s *fakeOrderStore) FindSellerByUser(_ context.Context, userID int64) (*models.Seller, error) {
	seller, ok := s.sellers[userID]
	if !ok {
		return nil, ErrNoSellerProfile
	}
	return seller, nil
}

func newOrderFixture() (*Service, *fakeOrderStore) {
	store := newFakeOrderStore()
	return NewService(store, zerolog.Nop()), store
}

func TestUpdateStatusValidatesTargetFirst(t *testing.T) {
	svc, store := newOrderFixture()
	store.addOrder(1, 7, models.StatusPending)

	// Even for an order the caller cannot see, a bogus status is rejected
	// before any lookup happens.
	_, err := svc.UpdateStatus(context.Background(), 999, 42, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), 1, 7, "refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, models.StatusPending, store.orders[1].Status)
}

func TestUpdateStatusTransitions(t *testing.T) {
	t.Run("pending to completed", func(t *testing.T) {
		svc, store := newOrderFixture()
		store.addOrder(1, 7, models.StatusPending)

		order, err := svc.UpdateStatus(context.Background(), 1, 7, models.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, order.Status)
		assert.Equal(t, models.StatusCompleted, store.orders[1].Status)
	})

	t.Run("pending to cancelled", func(t *testing.T) {
		svc, store := newOrderFixture()
		store.addOrder(1, 7, models.StatusPending)

		order, err := svc.UpdateStatus(context.Background(), 1, 7, models.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, order.Status)
	})

	t.Run("terminal states locked", func(t *testing.T) {
		svc, store := newOrderFixture()
		store.addOrder(1, 7, models.StatusCompleted)
		store.addOrder(2, 7, models.StatusCancelled)

		_, err := svc.UpdateStatus(context.Background(), 1, 7, models.StatusCancelled)
		var transition *TransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, models.StatusCompleted, transition.From)
		assert.Equal(t, models.StatusCancelled, transition.To)

		_, err = svc.UpdateStatus(context.Background(), 2, 7, models.StatusCompleted)
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, models.StatusCompleted, store.orders[1].Status)
	})

	t.Run("self transition rejected", func(t *testing.T) {
		svc, store := newOrderFixture()
		store.addOrder(1, 7, models.StatusPending)

		_, err := svc.UpdateStatus(context.Background(), 1, 7, models.StatusPending)
		var transition *TransitionError
		assert.ErrorAs(t, err, &transition)
	})
}

func TestUpdateStatusAccess(t *testing.T) {
	svc, store := newOrderFixture()
	store.addOrder(1, 7, models.StatusPending)
	store.access[1] = append(store.access[1], 30) // seller with a line in the order

	_, err := svc.UpdateStatus(context.Background(), 1, 99, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.StatusPending, store.orders[1].Status)

	_, err = svc.UpdateStatus(context.Background(), 1, 30, models.StatusCompleted)
	assert.NoError(t, err)
}

func TestDetailAccess(t *testing.T) {
	svc, store := newOrderFixture()
	store.addOrder(1, 7, models.StatusPending)

	detail, err := svc.Detail(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ID)

	_, err = svc.Detail(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForSeller(t *testing.T) {
	svc, store := newOrderFixture()
	store.sellers[10] = &models.Seller{ID: 3, UserID: 10, ShopName: "Tech Shop"}
	store.views[3] = []models.SellerOrderView{{OrderID: 1, CustomerID: 7, Status: models.StatusPending}}

	views, err := svc.ListForSeller(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].OrderID)

	_, err = svc.ListForSeller(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoSellerProfile)
}

func TestCancelIfPending(t *testing.T) {
	svc, store := newOrderFixture()
	store.addOrder(1, 7, models.StatusPending)
	store.addOrder(2, 7, models.StatusCompleted)

	cancelled, err := svc.CancelIfPending(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, cancelled)
	assert.Equal(t, models.StatusCancelled, store.orders[1].Status)

	cancelled, err = svc.CancelIfPending(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, cancelled)
	assert.Equal(t, models.StatusCompleted, store.orders[2].Status)
}

package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quyennx102/storefront-bff/internal/domain"
)

// mockAPI is a stateful stand-in for the remote cart store: it recomputes
// line subtotals on every mutation the way the backend does.
type mockAPI struct {
	m         sync.Mutex
	cart      *domain.Cart
	err       error
	gets      int
	mutations []string
	block     chan struct{}
}

func (m *mockAPI) GetCart(context.Context) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.cart
	copied.Items = append([]domain.LineItem(nil), m.cart.Items...)
	return &copied, nil
}

func (m *mockAPI) AddCartItem(_ context.Context, productID string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.mutations = append(m.mutations, fmt.Sprintf("add %s x%d", productID, quantity))
	if m.err != nil {
		return m.err
	}
	m.cart.Items = append(m.cart.Items, domain.LineItem{
		ID:        "li-" + productID,
		ProductID: productID,
		StoreID:   "s-1",
		UnitPrice: 2500,
		Quantity:  quantity,
		Stock:     10,
		Subtotal:  2500 * int64(quantity),
	})
	return nil
}

func (m *mockAPI) UpdateCartItem(_ context.Context, itemID string, quantity int) error {
	m.m.Lock()
	block := m.block
	m.mutations = append(m.mutations, fmt.Sprintf("update %s x%d", itemID, quantity))
	m.m.Unlock()

	if block != nil {
		<-block
	}

	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.cart.Items {
		if m.cart.Items[i].ID == itemID {
			m.cart.Items[i].Quantity = quantity
			m.cart.Items[i].Subtotal = m.cart.Items[i].UnitPrice * int64(quantity)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (m *mockAPI) RemoveCartItem(_ context.Context, itemID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.mutations = append(m.mutations, "remove "+itemID)
	if m.err != nil {
		return m.err
	}
	for i, item := range m.cart.Items {
		if item.ID == itemID {
			m.cart.Items = append(m.cart.Items[:i], m.cart.Items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (m *mockAPI) ClearCart(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.mutations = append(m.mutations, "clear")
	if m.err != nil {
		return m.err
	}
	m.cart.Items = nil
	return nil
}

func (m *mockAPI) mutationCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.mutations)
}

func confirmYes(context.Context, string) bool { return true }
func confirmNo(context.Context, string) bool  { return false }

func seededAPI() *mockAPI {
	return &mockAPI{
		cart: &domain.Cart{
			UserID: "u-1",
			Items: []domain.LineItem{
				{ID: "li-1", ProductID: "p-1", StoreID: "s-1", UnitPrice: 2500, Quantity: 2, Stock: 10, Subtotal: 5000},
			},
		},
	}
}

func newTestController(api API, confirm ConfirmFunc, onEmptied func(ctx context.Context) error) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(api, confirm, onEmptied, logger)
}

func TestController_AddItem(t *testing.T) {
	t.Run("adds and reconciles against server response", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmYes, nil)

		cart, err := ctrl.AddItem(context.Background(), "p-2", 1, 5)
		require.NoError(t, err)
		assert.Len(t, cart.Items, 2)
		assert.Equal(t, cart.Subtotal(), ctrl.Snapshot().Subtotal())
	})

	t.Run("rejects zero stock", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmYes, nil)

		_, err := ctrl.AddItem(context.Background(), "p-2", 1, 0)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Zero(t, api.mutationCount(), "no request may be issued")
	})

	t.Run("rejects quantity above known stock", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmYes, nil)

		_, err := ctrl.AddItem(context.Background(), "p-2", 6, 5)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Zero(t, api.mutationCount())
	})
}

func TestController_UpdateQuantity(t *testing.T) {
	t.Run("updates and recomputes totals from server subtotals", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmYes, nil)

		cart, err := ctrl.UpdateQuantity(context.Background(), "li-1", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(7500), cart.Subtotal())

		totals := ctrl.Totals(nil)
		assert.Equal(t, int64(7500), totals.Subtotal)
		assert.Equal(t, int64(750), totals.Tax)
		assert.Equal(t, int64(8250), totals.Total)
	})

	t.Run("quantity below one never reaches the wire", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmYes, nil)

		_, err := ctrl.UpdateQuantity(context.Background(), "li-1", 0)
		assert.ErrorIs(t, err, ErrQuantityTooLow)
		assert.Zero(t, api.mutationCount(), "no request may be issued")

		_, err = ctrl.UpdateQuantity(context.Background(), "li-1", -2)
		assert.ErrorIs(t, err, ErrQuantityTooLow)
		assert.Zero(t, api.mutationCount())
	})

	t.Run("overlapping mutations on the same item are rejected", func(t *testing.T) {
		api := seededAPI()
		api.block = make(chan struct{})
		ctrl := newTestController(api, confirmYes, nil)

		done := make(chan error, 1)
		go func() {
			_, err := ctrl.UpdateQuantity(context.Background(), "li-1", 3)
			done <- err
		}()

		// Wait until the first update is holding the in-flight guard.
		for !ctrl.Updating("li-1") {
			time.Sleep(time.Millisecond)
		}

		_, err := ctrl.UpdateQuantity(context.Background(), "li-1", 4)
		assert.ErrorIs(t, err, ErrMutationInFlight)

		close(api.block)
		require.NoError(t, <-done)
		assert.False(t, ctrl.Updating("li-1"))
	})
}

func TestController_RemoveItem(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmNo, nil)

		_, err := ctrl.RemoveItem(context.Background(), "li-1")
		assert.ErrorIs(t, err, ErrConfirmationDeclined)
		assert.Zero(t, api.mutationCount())
	})

	t.Run("removing the last item clears the discount", func(t *testing.T) {
		api := seededAPI()
		emptied := 0
		ctrl := newTestController(api, confirmYes, func(context.Context) error {
			emptied++
			return nil
		})

		cart, err := ctrl.RemoveItem(context.Background(), "li-1")
		require.NoError(t, err)
		assert.True(t, cart.Empty())
		assert.Equal(t, 1, emptied, "discount cannot outlive its cart")
	})

	t.Run("removing one of several items keeps the discount", func(t *testing.T) {
		api := seededAPI()
		api.cart.Items = append(api.cart.Items, domain.LineItem{
			ID: "li-2", ProductID: "p-2", StoreID: "s-1", UnitPrice: 1000, Quantity: 1, Stock: 3, Subtotal: 1000,
		})
		emptied := 0
		ctrl := newTestController(api, confirmYes, func(context.Context) error {
			emptied++
			return nil
		})

		cart, err := ctrl.RemoveItem(context.Background(), "li-2")
		require.NoError(t, err)
		assert.Len(t, cart.Items, 1)
		assert.Zero(t, emptied)
	})
}

func TestController_Clear(t *testing.T) {
	t.Run("clears after confirmation and drops the discount", func(t *testing.T) {
		api := seededAPI()
		emptied := 0
		ctrl := newTestController(api, confirmYes, func(context.Context) error {
			emptied++
			return nil
		})

		cart, err := ctrl.Clear(context.Background())
		require.NoError(t, err)
		assert.True(t, cart.Empty())
		assert.Equal(t, 1, emptied)
	})

	t.Run("declined confirmation leaves state untouched", func(t *testing.T) {
		api := seededAPI()
		ctrl := newTestController(api, confirmNo, nil)

		_, err := ctrl.Clear(context.Background())
		assert.ErrorIs(t, err, ErrConfirmationDeclined)
		assert.Zero(t, api.mutationCount())
	})
}

func TestController_FailedMutationKeepsSnapshot(t *testing.T) {
	api := seededAPI()
	ctrl := newTestController(api, confirmYes, nil)

	_, err := ctrl.Refresh(context.Background())
	require.NoError(t, err)

	api.m.Lock()
	api.err = fmt.Errorf("server rejected")
	api.m.Unlock()

	_, err = ctrl.UpdateQuantity(context.Background(), "li-1", 3)
	require.Error(t, err)

	snapshot := ctrl.Snapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(5000), snapshot.Subtotal(), "failed mutation must not mutate local state")
}

package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAddresses struct {
	repo.AddressRepository
	byID map[string]model.Address
}

func (m *memAddresses) FindByID(_ context.Context, id string) (model.Address, error) {
	a, ok := m.byID[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

type checkoutFixture struct {
	repos *fakeTxRepos
	trt   *testRuntime
	uc    *usecase.OrderUsecase
}

// user-1のカートにP1×2（1000円）とP2×1（500円）
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	repos := newFakeTxRepos()
	repos.products.byID["P1"] = model.Product{ID: "P1", Name: "Nasal Spray", SKU: "NS-1", Price: 1000, IsActive: true}
	repos.products.byID["P2"] = model.Product{ID: "P2", Name: "Eye Drops", SKU: "ED-1", Price: 500, IsActive: true}
	repos.inventory.put("P1", 10, 0)
	repos.inventory.put("P2", 1, 0)
	repos.carts.cart = &model.Cart{ID: "C1", UserID: customer.UserID, Status: model.CartStatusActive}
	repos.carts.items = []model.CartItem{
		{ID: "CI2", CartID: "C1", ProductID: "P2", Quantity: 1, UnitPriceSnapshot: 500},
		{ID: "CI1", CartID: "C1", ProductID: "P1", Quantity: 2, UnitPriceSnapshot: 1000},
	}
	addresses := &memAddresses{byID: map[string]model.Address{
		"A1": {ID: "A1", UserID: customer.UserID, Name: "Taro", PostalCode: "100-0001", Prefecture: "Tokyo", City: "Chiyoda", Line1: "1-1"},
	}}

	trt := newTestRuntime()
	uc := usecase.NewOrderUsecase(newTxManager(repos), repos.orders, repos.orderItems, addresses, trt.rt)
	return &checkoutFixture{repos: repos, trt: trt, uc: uc}
}

func TestPlaceOrder_ReservesStockAndClearsCart(t *testing.T) {
	f := newCheckoutFixture(t)

	res, err := f.uc.PlaceOrder(context.Background(), customer, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	assert.Equal(t, int64(2500), res.Order.TotalAmount)
	assert.Equal(t, "Taro", res.Order.ShippingName)
	require.Len(t, res.Order.Items, 2)
	// product_id順
	assert.Equal(t, "P1", res.Order.Items[0].ProductID)

	p1 := f.repos.inventory.get("P1")
	assert.Equal(t, int64(10), p1.Quantity)
	assert.Equal(t, int64(2), p1.ReservedQuantity)
	assert.Equal(t, int64(8), p1.AvailableQuantity)
	assert.Equal(t, int64(0), f.repos.inventory.get("P2").AvailableQuantity)

	assert.True(t, f.repos.carts.cleared)
	assert.Equal(t, model.CartStatusCheckedOut, f.repos.carts.cart.Status)
	require.Len(t, res.Effects, 1)
	assert.Equal(t, usecase.StepPublishEvent, res.Effects[0].Step)
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newCheckoutFixture(t)
	in := usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "same"}

	first, err := f.uc.PlaceOrder(context.Background(), customer, in)
	require.NoError(t, err)
	second, err := f.uc.PlaceOrder(context.Background(), customer, in)
	require.NoError(t, err)

	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Len(t, f.repos.orders.byID, 1)
	assert.Empty(t, second.Effects)
	assert.Equal(t, int64(2), f.repos.inventory.get("P1").ReservedQuantity)
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.repos.inventory.put("P2", 0, 0)

	_, err := f.uc.PlaceOrder(context.Background(), customer, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k1"})
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "out of stock")
	assert.Empty(t, f.repos.orders.byID)
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name  string
		actor usecase.Actor
		in    usecase.PlaceOrderInput
		want  int
	}{
		{"unauthenticated", anon, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k"}, http.StatusUnauthorized},
		{"missing key", customer, usecase.PlaceOrderInput{AddressID: "A1"}, http.StatusBadRequest},
		{"missing address", customer, usecase.PlaceOrderInput{IdempotencyKey: "k"}, http.StatusBadRequest},
		{"unknown address", customer, usecase.PlaceOrderInput{AddressID: "A9", IdempotencyKey: "k"}, http.StatusNotFound},
		{"someone else's address", stranger, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			_, err := f.uc.PlaceOrder(context.Background(), tt.actor, tt.in)
			assertStatus(t, err, tt.want)
		})
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.repos.carts.items = nil

	_, err := f.uc.PlaceOrder(context.Background(), customer, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k1"})
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "cart empty")
}

func TestPlaceOrder_InactiveProduct(t *testing.T) {
	f := newCheckoutFixture(t)
	p := f.repos.products.byID["P2"]
	p.IsActive = false
	f.repos.products.byID["P2"] = p

	_, err := f.uc.PlaceOrder(context.Background(), customer, usecase.PlaceOrderInput{AddressID: "A1", IdempotencyKey: "k1"})
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "product unavailable")
}

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

// memCartsはユーザー1人分のカートだけ持つ
func (m *memCarts) GetOrCreateActiveByUserID(_ context.Context, userID string) (model.Cart, error) {
	if m.cart == nil || m.cart.UserID != userID || m.cart.Status != model.CartStatusActive {
		m.cart = &model.Cart{ID: "cart-" + userID, UserID: userID, Status: model.CartStatusActive}
		m.items = nil
	}
	return *m.cart, nil
}

func (m *memCarts) UpsertByCartAndProduct(_ context.Context, item model.CartItem) error {
	for i, it := range m.items {
		if it.CartID == item.CartID && it.ProductID == item.ProductID {
			m.items[i].Quantity += item.Quantity
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *memCarts) UpdateQuantity(_ context.Context, cartItemID string, qty int64) error {
	for i, it := range m.items {
		if it.ID == cartItemID {
			m.items[i].Quantity = qty
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *memCarts) DeleteByID(_ context.Context, cartItemID string) error {
	for i, it := range m.items {
		if it.ID == cartItemID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *memCarts) FindByID(_ context.Context, cartItemID string) (model.CartItem, error) {
	for _, it := range m.items {
		if it.ID == cartItemID {
			return it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (m *memCarts) IsOwnedByUser(_ context.Context, cartItemID, userID string) (bool, error) {
	if m.cart == nil || m.cart.UserID != userID {
		return false, nil
	}
	for _, it := range m.items {
		if it.ID == cartItemID && it.CartID == m.cart.ID {
			return true, nil
		}
	}
	return false, nil
}

func newCartFixture(t *testing.T) (*fakeTxRepos, *usecase.CartUsecase) {
	t.Helper()
	repos := newFakeTxRepos()
	repos.products.byID["p1"] = model.Product{ID: "p1", Name: "Nasal Spray", SKU: "NS-1", Price: 1200, IsActive: true}
	repos.products.byID["off"] = model.Product{ID: "off", Name: "Old", SKU: "OLD", Price: 500, IsActive: false}
	repos.inventory.put("p1", 5, 2)
	repos.inventory.put("off", 10, 0)
	uc := usecase.NewCartUsecase(repos.carts, repos.carts, repos.products, repos.inventory, &seqIDs{})
	return repos, uc
}

func TestCartGet_CreatesEmptyCart(t *testing.T) {
	repos, uc := newCartFixture(t)

	out, err := uc.GetCart(context.Background(), customer)
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.Zero(t, out.Total)
	require.NotNil(t, repos.carts.cart)
	assert.Equal(t, "user-1", repos.carts.cart.UserID)
}

func TestCartAdd_MergesSameProduct(t *testing.T) {
	_, uc := newCartFixture(t)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	out, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(3), out.Items[0].Quantity)
	assert.Equal(t, int64(1200), out.Items[0].Price)
	assert.Equal(t, int64(3600), out.Total)
}

// 在庫5・引当2なので販売可能は3
func TestCartAdd_StockExceeded(t *testing.T) {
	_, uc := newCartFixture(t)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	_, err = uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 2})
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "stock exceeded")
}

func TestCartAdd_Errors(t *testing.T) {
	tests := []struct {
		name   string
		actor  usecase.Actor
		in     usecase.AddCartInput
		status int
	}{
		{"anonymous", anon, usecase.AddCartInput{ProductID: "p1", Quantity: 1}, http.StatusUnauthorized},
		{"no product", customer, usecase.AddCartInput{ProductID: " ", Quantity: 1}, http.StatusBadRequest},
		{"zero quantity", customer, usecase.AddCartInput{ProductID: "p1", Quantity: 0}, http.StatusBadRequest},
		{"inactive product", customer, usecase.AddCartInput{ProductID: "off", Quantity: 1}, http.StatusBadRequest},
		{"unknown product", customer, usecase.AddCartInput{ProductID: "nope", Quantity: 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, uc := newCartFixture(t)
			_, err := uc.AddToCart(context.Background(), tt.actor, tt.in)
			assertStatus(t, err, tt.status)
		})
	}
}

func TestCartUpdateItem(t *testing.T) {
	repos, uc := newCartFixture(t)
	ctx := context.Background()

	out, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	itemID := out.Items[0].ID

	out, err = uc.UpdateCartItem(ctx, customer, itemID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Items[0].Quantity)

	_, err = uc.UpdateCartItem(ctx, customer, itemID, 4)
	assertStatus(t, err, http.StatusBadRequest)

	_, err = uc.UpdateCartItem(ctx, customer, itemID, 0)
	assertStatus(t, err, http.StatusBadRequest)

	// 他人の明細は存在しない扱い
	_, err = uc.UpdateCartItem(ctx, stranger, itemID, 1)
	assertStatus(t, err, http.StatusNotFound)
	assert.Equal(t, int64(3), repos.carts.items[0].Quantity)
}

func TestCartDeleteItem(t *testing.T) {
	repos, uc := newCartFixture(t)
	ctx := context.Background()

	out, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	itemID := out.Items[0].ID

	_, err = uc.DeleteCartItem(ctx, stranger, itemID)
	assertStatus(t, err, http.StatusNotFound)

	out, err = uc.DeleteCartItem(ctx, customer, itemID)
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Empty(t, repos.carts.items)

	_, err = uc.DeleteCartItem(ctx, anon, itemID)
	assertStatus(t, err, http.StatusUnauthorized)
}

// 非公開になった商品は表示と合計から外す
func TestCartGet_SkipsDeactivatedProducts(t *testing.T) {
	repos, uc := newCartFixture(t)
	ctx := context.Background()

	_, err := uc.AddToCart(ctx, customer, usecase.AddCartInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	p := repos.products.byID["p1"]
	p.IsActive = false
	repos.products.byID["p1"] = p

	out, err := uc.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Zero(t, out.Total)
}

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

type memCategories struct {
	repo.CategoryRepository
	byID map[string]model.Category
}

func (m *memCategories) FindByID(_ context.Context, id string) (model.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return model.Category{}, repo.ErrNotFound
	}
	return c, nil
}

func (m *memCategories) FindBySlug(_ context.Context, slug string) (model.Category, error) {
	for _, c := range m.byID {
		if c.Slug == slug {
			return c, nil
		}
	}
	return model.Category{}, repo.ErrNotFound
}

func (m *memCategories) Create(_ context.Context, c model.Category) (model.Category, error) {
	m.byID[c.ID] = c
	return c, nil
}

const p1UUID = "0b9c7c1e-3f5a-4c43-9a57-3f0c6f8e9a11"

func newProductFixture(t *testing.T) (*fakeTxRepos, *usecase.ProductUsecase) {
	t.Helper()
	repos := newFakeTxRepos()
	repos.categories = &memCategories{byID: map[string]model.Category{"cat-1": {ID: "cat-1", Name: "Health", Slug: "health"}}}
	repos.products.byID[p1UUID] = model.Product{ID: p1UUID, Name: "Nasal Spray", Slug: "nasal-spray", SKU: "NS-1", Price: 1200, IsActive: true}
	repos.products.byID["hidden"] = model.Product{ID: "hidden", Name: "Old", Slug: "old-item", SKU: "OLD", IsActive: false}
	uc := usecase.NewProductUsecase(newTxManager(repos), repos.products, repos.categories, repos.inventory, newTestRuntime().rt)
	return repos, uc
}

// 検索語は大文字小文字を変えずにそのままrepositoryに渡す（ILIKEで名前・説明・SKUを照合）
func TestProductList_SearchPassthrough(t *testing.T) {
	repos, uc := newProductFixture(t)
	repos.products.listResult = []repo.ProductWithStock{{Product: repos.products.byID[p1UUID], AvailableQuantity: 4}}

	out, err := uc.List(context.Background(), anon, usecase.ListProductsInput{Page: 1, Limit: 20, Search: "  NaSaL ", Category: "health"})
	require.NoError(t, err)

	assert.Equal(t, "NaSaL", repos.products.lastQuery.Search)
	assert.Equal(t, "health", repos.products.lastQuery.CategorySlug)
	assert.False(t, repos.products.lastQuery.IncludeInactive)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, int64(4), out.Items[0].AvailableQuantity)
}

func TestProductList_Validation(t *testing.T) {
	_, uc := newProductFixture(t)
	lo, hi := int64(500), int64(100)

	tests := []struct {
		name string
		in   usecase.ListProductsInput
	}{
		{"page zero", usecase.ListProductsInput{Page: 0, Limit: 20}},
		{"limit too big", usecase.ListProductsInput{Page: 1, Limit: 101}},
		{"min > max", usecase.ListProductsInput{Page: 1, Limit: 20, MinPrice: &lo, MaxPrice: &hi}},
		{"bad sort", usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "random"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.List(context.Background(), anon, tt.in)
			assertStatus(t, err, http.StatusBadRequest)
		})
	}
}

func TestProductGet_ByIDOrSlug(t *testing.T) {
	repos, uc := newProductFixture(t)
	repos.inventory.put(p1UUID, 5, 1)

	byID, err := uc.Get(context.Background(), anon, p1UUID)
	require.NoError(t, err)
	bySlug, err := uc.Get(context.Background(), anon, "nasal-spray")
	require.NoError(t, err)

	assert.Equal(t, byID.ID, bySlug.ID)
	assert.Equal(t, int64(4), byID.AvailableQuantity)
	assert.Nil(t, byID.Inventory, "inventory rows are admin only")
}

func TestProductGet_InactiveHiddenFromCustomers(t *testing.T) {
	_, uc := newProductFixture(t)

	_, err := uc.Get(context.Background(), customer, "old-item")
	assertStatus(t, err, http.StatusNotFound)

	d, err := uc.Get(context.Background(), admin, "old-item")
	require.NoError(t, err)
	assert.Equal(t, "hidden", d.ID)
}

func TestProductCreate_DerivesSlugAndCreatesInventory(t *testing.T) {
	repos, uc := newProductFixture(t)
	cat := "cat-1"

	d, err := uc.Create(context.Background(), admin, usecase.ProductInput{
		Name: "Vitamin C 500mg", SKU: "VC-500", Price: 980, CategoryID: &cat, IsActive: true, InitialQuantity: 12,
	})
	require.NoError(t, err)

	assert.Equal(t, "vitamin-c-500mg", d.Slug)
	assert.Equal(t, int64(12), d.AvailableQuantity)
	assert.Equal(t, int64(12), repos.inventory.get(d.ID).Quantity)
	require.Len(t, repos.inventory.adjustments, 1)
	assert.Equal(t, model.AdjustmentSet, repos.inventory.adjustments[0].Kind)
}

func TestProductCreate_Errors(t *testing.T) {
	_, uc := newProductFixture(t)
	missing := "cat-x"

	_, err := uc.Create(context.Background(), customer, usecase.ProductInput{Name: "A", SKU: "A", Price: 1})
	assertStatus(t, err, http.StatusForbidden)

	_, err = uc.Create(context.Background(), admin, usecase.ProductInput{Name: "A", SKU: "A", Price: -1})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = uc.Create(context.Background(), admin, usecase.ProductInput{Name: "A", SKU: "A", Price: 1, CategoryID: &missing})
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "category not found")
}

// 実在庫だけ変わり、引当はそのまま
func TestSetInventory_KeepsReservation(t *testing.T) {
	repos, uc := newProductFixture(t)
	repos.inventory.put(p1UUID, 10, 4)

	res, err := uc.SetInventory(context.Background(), admin, p1UUID, 6, "stocktake")
	require.NoError(t, err)

	assert.Equal(t, int64(6), res.Inventory.Quantity)
	assert.Equal(t, int64(4), res.Inventory.ReservedQuantity)
	assert.Equal(t, int64(2), res.Inventory.AvailableQuantity)
	require.Len(t, repos.auditLogs.logs, 1)
	assert.Equal(t, model.AuditActionUpdateStock, repos.auditLogs.logs[0].Action)
	assert.Equal(t, int64(-4), repos.inventory.adjustments[0].DeltaQuantity)
	require.Len(t, res.Effects, 1)
	assert.True(t, res.Effects[0].OK)
}

func TestSetInventory_CreatesMissingRow(t *testing.T) {
	repos, uc := newProductFixture(t)

	res, err := uc.SetInventory(context.Background(), admin, p1UUID, 3, "first delivery")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Inventory.AvailableQuantity)
	assert.Equal(t, model.DefaultLocation, repos.inventory.get(p1UUID).Location)
}

func TestSetInventory_Errors(t *testing.T) {
	_, uc := newProductFixture(t)

	_, err := uc.SetInventory(context.Background(), admin, p1UUID, -1, "x")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = uc.SetInventory(context.Background(), admin, p1UUID, 1, " ")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = uc.SetInventory(context.Background(), admin, "nope", 1, "x")
	assertStatus(t, err, http.StatusNotFound)
	_, err = uc.SetInventory(context.Background(), customer, p1UUID, 1, "x")
	assertStatus(t, err, http.StatusForbidden)
}

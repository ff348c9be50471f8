package usecase_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// TxManager / TxRepos
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す。
// fnがエラーを返したらメモリ上の状態を開始時点に戻す
type txManagerMock struct {
	mock.Mock
	repos *fakeTxRepos
}

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	rollback := m.repos.snapshot()
	if err := fn(m.repos); err != nil {
		rollback()
		return err
	}
	return nil
}

func newTxManager(r *fakeTxRepos) *txManagerMock {
	tm := &txManagerMock{repos: r}
	tm.On("WithinTx", mock.Anything).Return()
	return tm
}

type fakeTxRepos struct {
	orders     *memOrders
	orderItems *memOrderItems
	inventory  *memInventory
	products   *memProducts
	carts      *memCarts
	returns    *memReturns
	auditLogs  *memAuditLogs
	categories repo.CategoryRepository
}

func newFakeTxRepos() *fakeTxRepos {
	return &fakeTxRepos{
		orders:     &memOrders{byID: map[string]model.Order{}},
		orderItems: &memOrderItems{},
		inventory:  &memInventory{rows: map[string]model.Inventory{}},
		products:   &memProducts{byID: map[string]model.Product{}},
		carts:      &memCarts{},
		returns:    &memReturns{byID: map[string]model.ReturnRequest{}},
		auditLogs:  &memAuditLogs{},
	}
}

// 各fakeの中身を複製し、戻す関数を返す
func (r *fakeTxRepos) snapshot() func() {
	orders := maps.Clone(r.orders.byID)
	orderItems := slices.Clone(r.orderItems.items)
	invRows := maps.Clone(r.inventory.rows)
	invAdj := slices.Clone(r.inventory.adjustments)
	products := maps.Clone(r.products.byID)
	sales := maps.Clone(r.products.sales)
	var cart *model.Cart
	if r.carts.cart != nil {
		c := *r.carts.cart
		cart = &c
	}
	cartItems := slices.Clone(r.carts.items)
	cleared := r.carts.cleared
	returns := maps.Clone(r.returns.byID)
	logs := slices.Clone(r.auditLogs.logs)

	return func() {
		r.orders.byID = orders
		r.orderItems.items = orderItems
		r.inventory.rows = invRows
		r.inventory.adjustments = invAdj
		r.products.byID = products
		r.products.sales = sales
		r.carts.cart = cart
		r.carts.items = cartItems
		r.carts.cleared = cleared
		r.returns.byID = returns
		r.auditLogs.logs = logs
	}
}

func (r *fakeTxRepos) Orders() repo.OrderRepository         { return r.orders }
func (r *fakeTxRepos) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *fakeTxRepos) Carts() repo.CartRepository           { return r.carts }
func (r *fakeTxRepos) CartItems() repo.CartItemRepository   { return r.carts }
func (r *fakeTxRepos) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *fakeTxRepos) Products() repo.ProductRepository     { return r.products }
func (r *fakeTxRepos) Categories() repo.CategoryRepository  { return r.categories }
func (r *fakeTxRepos) Returns() repo.ReturnRepository       { return r.returns }
func (r *fakeTxRepos) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// in-memory repositories
// 使わないメソッドは埋め込んだnil interfaceでpanicさせる
// =====================

type memOrders struct {
	repo.OrderRepository
	byID map[string]model.Order
}

func (m *memOrders) FindByID(_ context.Context, id string) (model.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) FindByIDForUpdate(ctx context.Context, id string) (model.Order, error) {
	return m.FindByID(ctx, id)
}

func (m *memOrders) Create(_ context.Context, o model.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *memOrders) Update(_ context.Context, o model.Order) error {
	if _, ok := m.byID[o.ID]; !ok {
		return repo.ErrNotFound
	}
	m.byID[o.ID] = o
	return nil
}

func (m *memOrders) FindByIdempotencyKey(_ context.Context, userID, key string) (model.Order, bool, error) {
	for _, o := range m.byID {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

type memOrderItems struct {
	repo.OrderItemRepository
	items []model.OrderItem
}

func (m *memOrderItems) CreateBulk(_ context.Context, orderID string, items []model.OrderItem) error {
	for _, it := range items {
		it.OrderID = orderID
		m.items = append(m.items, it)
	}
	return nil
}

func (m *memOrderItems) ListByOrderID(_ context.Context, orderID string) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memOrderItems) FindByID(_ context.Context, id string) (model.OrderItem, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.OrderItem{}, repo.ErrNotFound
}

type memInventory struct {
	repo.InventoryRepository
	rows        map[string]model.Inventory
	adjustments []model.InventoryAdjustment
}

func invKey(productID, location string) string { return productID + "|" + location }

func (m *memInventory) put(productID string, qty, reserved int64) {
	inv := model.Inventory{ID: "inv-" + productID, ProductID: productID, Location: model.DefaultLocation}
	inv.SetQuantity(qty)
	if reserved > 0 {
		_ = inv.Reserve(reserved)
	}
	m.rows[invKey(productID, model.DefaultLocation)] = inv
}

func (m *memInventory) get(productID string) model.Inventory {
	return m.rows[invKey(productID, model.DefaultLocation)]
}

func (m *memInventory) FindForUpdate(_ context.Context, productID, location string) (model.Inventory, error) {
	inv, ok := m.rows[invKey(productID, location)]
	if !ok {
		return model.Inventory{}, repo.ErrNotFound
	}
	return inv, nil
}

func (m *memInventory) FindByProduct(_ context.Context, productID string) ([]model.Inventory, error) {
	out := []model.Inventory{}
	for _, inv := range m.rows {
		if inv.ProductID == productID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInventory) Create(_ context.Context, inv model.Inventory) error {
	m.rows[invKey(inv.ProductID, inv.Location)] = inv
	return nil
}

func (m *memInventory) Save(_ context.Context, inv model.Inventory) error {
	m.rows[invKey(inv.ProductID, inv.Location)] = inv
	return nil
}

func (m *memInventory) CreateAdjustment(_ context.Context, adj model.InventoryAdjustment) error {
	m.adjustments = append(m.adjustments, adj)
	return nil
}

type memProducts struct {
	repo.ProductRepository
	byID       map[string]model.Product
	sales      map[string]int64
	lastQuery  repo.ProductListQuery
	listResult []repo.ProductWithStock
}

func (m *memProducts) FindByID(_ context.Context, id string) (model.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) FindBySlug(_ context.Context, slug string) (model.Product, error) {
	for _, p := range m.byID {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (m *memProducts) FindBySKU(_ context.Context, sku string) (model.Product, error) {
	for _, p := range m.byID {
		if p.SKU == sku {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (m *memProducts) FindByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p model.Product) (model.Product, error) {
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProducts) Update(_ context.Context, p model.Product) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memProducts) UpdatePrice(_ context.Context, id string, price int64) error {
	p := m.byID[id]
	p.Price = price
	m.byID[id] = p
	return nil
}

func (m *memProducts) SetActive(_ context.Context, ids []string, active bool) (int64, error) {
	var n int64
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			p.IsActive = active
			m.byID[id] = p
			n++
		}
	}
	return n, nil
}

func (m *memProducts) IncrementSalesCount(_ context.Context, id string, qty int64) error {
	if m.sales == nil {
		m.sales = map[string]int64{}
	}
	m.sales[id] += qty
	return nil
}

// 検索条件はSQL側の責務なので、受け取ったクエリだけ記録する
func (m *memProducts) List(_ context.Context, q repo.ProductListQuery) ([]repo.ProductWithStock, int64, error) {
	m.lastQuery = q
	return m.listResult, int64(len(m.listResult)), nil
}

type memCarts struct {
	repo.CartRepository
	repo.CartItemRepository
	cart    *model.Cart
	items   []model.CartItem
	cleared bool
}

func (m *memCarts) FindActiveByUserID(_ context.Context, userID string) (model.Cart, error) {
	if m.cart == nil || m.cart.UserID != userID || m.cart.Status != model.CartStatusActive {
		return model.Cart{}, repo.ErrNotFound
	}
	return *m.cart, nil
}

func (m *memCarts) ListByCartID(_ context.Context, cartID string) ([]model.CartItem, error) {
	out := []model.CartItem{}
	for _, it := range m.items {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memCarts) UpdateStatus(_ context.Context, _ string, status model.CartStatus) error {
	m.cart.Status = status
	return nil
}

func (m *memCarts) Clear(_ context.Context, _ string) error {
	m.items = nil
	m.cleared = true
	return nil
}

type memReturns struct {
	repo.ReturnRepository
	byID map[string]model.ReturnRequest
}

func (m *memReturns) Create(_ context.Context, r model.ReturnRequest) error {
	m.byID[r.ID] = r
	return nil
}

func (m *memReturns) FindByID(_ context.Context, id string) (model.ReturnRequest, error) {
	r, ok := m.byID[id]
	if !ok {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	return r, nil
}

func (m *memReturns) Update(_ context.Context, r model.ReturnRequest) error {
	m.byID[r.ID] = r
	return nil
}

func (m *memReturns) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memReturns) ListByOrderID(_ context.Context, orderID string) ([]model.ReturnRequest, error) {
	out := []model.ReturnRequest{}
	for _, r := range m.byID {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memAuditLogs struct {
	logs []model.AuditLog
}

func (m *memAuditLogs) Create(_ context.Context, l model.AuditLog) error {
	m.logs = append(m.logs, l)
	return nil
}

func (m *memAuditLogs) List(_ context.Context, _ repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	return m.logs, int64(len(m.logs)), nil
}

// =====================
// testify mocks
// =====================

type notificationRepoMock struct{ mock.Mock }

func (m *notificationRepoMock) Create(ctx context.Context, n model.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *notificationRepoMock) ListByUserID(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	list, _ := args.Get(0).([]model.Notification)
	return list, args.Error(1)
}

func (m *notificationRepoMock) MarkRead(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

type eventPublisherMock struct{ mock.Mock }

func (m *eventPublisherMock) Publish(ctx context.Context, ev model.Event) error {
	return m.Called(ctx, ev).Error(0)
}

type rateLimiterMock struct{ mock.Mock }

func (m *rateLimiterMock) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type metricsMock struct {
	usecase.NopMetrics
	mu          sync.Mutex
	transitions []string
	limited     []string
}

func (m *metricsMock) OrderTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *metricsMock) RateLimited(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited = append(m.limited, scope)
}

// =====================
// Runtime
// =====================

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type testRuntime struct {
	rt            usecase.Runtime
	notifications *notificationRepoMock
	events        *eventPublisherMock
	metrics       *metricsMock
}

// 通知とイベントはデフォルトで成功
func newTestRuntime() *testRuntime {
	n := &notificationRepoMock{}
	n.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	ev := &eventPublisherMock{}
	ev.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	met := &metricsMock{}
	return &testRuntime{
		rt: usecase.Runtime{
			IDs:           &seqIDs{},
			Clock:         fixedClock{t: testNow},
			Log:           zap.NewNop(),
			Metrics:       met,
			Events:        ev,
			Notifications: n,
		},
		notifications: n,
		events:        ev,
		metrics:       met,
	}
}

// =====================
// helpers
// =====================

var (
	admin    = usecase.Actor{UserID: "admin-1", Role: model.RoleAdmin}
	customer = usecase.Actor{UserID: "user-1", Role: model.RoleUser}
	stranger = usecase.Actor{UserID: "user-2", Role: model.RoleUser}
	anon     = usecase.Actor{}
)

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want HTTPError, got %v", err) {
		assert.Equal(t, want, he.Status, "message=%q", he.Message)
	}
}

func assertErrContains(t *testing.T, err error, want string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), want), "err=%q want contains %q", err.Error(), want)
	}
}

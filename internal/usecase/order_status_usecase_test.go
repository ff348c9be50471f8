package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	repos *fakeTxRepos
	tx    *txManagerMock
	trt   *testRuntime
	uc    *usecase.OrderUsecase
}

// O1: user-1の注文、P1を数量qtyで1明細
func newOrderFixture(t *testing.T, status model.OrderStatus, qty int64) *orderFixture {
	t.Helper()
	repos := newFakeTxRepos()
	repos.orders.byID["O1"] = model.Order{
		ID:            "O1",
		UserID:        customer.UserID,
		Status:        status,
		PaymentStatus: model.PaymentStatusPaid,
		TotalAmount:   1000 * qty,
	}
	repos.orderItems.items = []model.OrderItem{
		{ID: "OI1", OrderID: "O1", ProductID: "P1", ProductName: "Nasal Spray", UnitPrice: 1000, Quantity: qty, TotalPrice: 1000 * qty},
	}
	repos.products.byID["P1"] = model.Product{ID: "P1", Name: "Nasal Spray", SKU: "NS-1", Price: 1000, IsActive: true}

	tx := newTxManager(repos)
	trt := newTestRuntime()
	uc := usecase.NewOrderUsecase(tx, repos.orders, repos.orderItems, nil, trt.rt)
	return &orderFixture{repos: repos, tx: tx, trt: trt, uc: uc}
}

func statusInput(s model.OrderStatus) usecase.UpdateOrderStatusInput {
	return usecase.UpdateOrderStatusInput{Status: string(s)}
}

func TestUpdateStatus_Shipped_DecrementsQuantityAndReserved(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 3)
	f.repos.inventory.put("P1", 10, 3)
	require.Equal(t, int64(7), f.repos.inventory.get("P1").AvailableQuantity)

	res, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusShipped))
	require.NoError(t, err)

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(7), inv.Quantity)
	assert.Equal(t, int64(0), inv.ReservedQuantity)
	assert.Equal(t, int64(7), inv.AvailableQuantity)

	assert.Equal(t, model.OrderStatusShipped, res.Order.Status)
	assert.NotNil(t, res.Order.ShippedAt)
	assert.Equal(t, int64(3), f.repos.products.sales["P1"])

	require.Len(t, f.repos.inventory.adjustments, 1)
	adj := f.repos.inventory.adjustments[0]
	assert.Equal(t, model.AdjustmentShip, adj.Kind)
	assert.Equal(t, int64(-3), adj.DeltaQuantity)
	assert.Equal(t, int64(-3), adj.DeltaReserved)
	require.NotNil(t, adj.OrderID)
	assert.Equal(t, "O1", *adj.OrderID)

	require.Len(t, f.repos.auditLogs.logs, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, f.repos.auditLogs.logs[0].Action)
	assert.Contains(t, f.repos.auditLogs.logs[0].BeforeJSON, `"confirmed"`)
	assert.Contains(t, f.repos.auditLogs.logs[0].AfterJSON, `"shipped"`)

	require.Len(t, res.Effects, 2)
	for _, e := range res.Effects {
		assert.True(t, e.OK, e.Step)
	}
	assert.Equal(t, []string{"confirmed->shipped"}, f.trt.metrics.transitions)
	f.tx.AssertNumberOfCalls(t, "WithinTx", 1)
}

// 出荷時、引当が注文数より少なくても0で止まる
func TestUpdateStatus_Shipped_ReservedFloorsAtZero(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusProcessing, 5)
	f.repos.inventory.put("P1", 20, 2)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusShipped))
	require.NoError(t, err)

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(15), inv.Quantity)
	assert.Equal(t, int64(0), inv.ReservedQuantity)
	assert.Equal(t, int64(15), inv.AvailableQuantity)
}

func TestUpdateStatus_Cancelled_ReleasesReservation(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 4)
	f.repos.inventory.put("P1", 10, 4)
	reason := "  changed my mind "

	res, err := f.uc.UpdateStatus(context.Background(), customer, "O1", usecase.UpdateOrderStatusInput{
		Status:          "cancelled",
		CancelledReason: &reason,
	})
	require.NoError(t, err)

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(10), inv.Quantity, "quantity unchanged")
	assert.Equal(t, int64(0), inv.ReservedQuantity)
	assert.Equal(t, int64(10), inv.AvailableQuantity)

	assert.Equal(t, model.OrderStatusCancelled, res.Order.Status)
	assert.Equal(t, "changed my mind", res.Order.CancelledReason)
	assert.NotNil(t, res.Order.CancelledAt)
	assert.Equal(t, model.AdjustmentRelease, f.repos.inventory.adjustments[0].Kind)
}

func TestUpdateStatus_Cancelled_ReleaseFloorsAtZero(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 4)
	f.repos.inventory.put("P1", 10, 2)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusCancelled))
	require.NoError(t, err)

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(10), inv.Quantity)
	assert.Equal(t, int64(0), inv.ReservedQuantity)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	tests := []struct {
		name   string
		actor  usecase.Actor
		status model.OrderStatus
		target model.OrderStatus
		want   int
	}{
		{"unauthenticated", anon, model.OrderStatusPending, model.OrderStatusCancelled, http.StatusUnauthorized},
		{"not owner", stranger, model.OrderStatusPending, model.OrderStatusCancelled, http.StatusForbidden},
		{"owner on confirmed order", customer, model.OrderStatusConfirmed, model.OrderStatusCancelled, http.StatusBadRequest},
		{"owner skipping ahead", customer, model.OrderStatusPending, model.OrderStatusShipped, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, tt.status, 1)
			f.repos.inventory.put("P1", 10, 1)

			_, err := f.uc.UpdateStatus(context.Background(), tt.actor, "O1", statusInput(tt.target))
			assertStatus(t, err, tt.want)

			assert.Equal(t, tt.status, f.repos.orders.byID["O1"].Status)
			assert.Empty(t, f.repos.inventory.adjustments)
			assert.Empty(t, f.repos.auditLogs.logs)
		})
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusShipped, 2)
	f.repos.inventory.put("P1", 8, 0)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusCancelled))
	assertStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "shipped -> cancelled")
	assert.Equal(t, int64(8), f.repos.inventory.get("P1").Quantity)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 1)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", usecase.UpdateOrderStatusInput{Status: "lost"})
	assertStatus(t, err, http.StatusBadRequest)
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 1)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "nope", statusInput(model.OrderStatusConfirmed))
	assertStatus(t, err, http.StatusNotFound)
}

func TestUpdateStatus_MissingInventoryRow(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 1)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusShipped))
	assertStatus(t, err, http.StatusConflict)
}

// 同じステータスなら付随項目だけ更新し、在庫・通知には触れない
func TestUpdateStatus_SameStatusUpdatesTracking(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusShipped, 1)
	tracking, carrier := "TRK-1", "Yamato"

	res, err := f.uc.UpdateStatus(context.Background(), admin, "O1", usecase.UpdateOrderStatusInput{
		Status:         "shipped",
		TrackingNumber: &tracking,
		Carrier:        &carrier,
	})
	require.NoError(t, err)

	assert.Equal(t, "TRK-1", res.Order.TrackingNumber)
	assert.Equal(t, "Yamato", res.Order.Carrier)
	assert.Empty(t, res.Effects)
	assert.Empty(t, f.repos.inventory.adjustments)
	assert.Len(t, f.repos.auditLogs.logs, 1)
}

// 通知に失敗してもcommit済みの変更は残り、結果にfalseで出る
func TestUpdateStatus_NotificationFailureIsReported(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 1)
	f.trt.notifications.ExpectedCalls = nil
	f.trt.notifications.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	res, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusConfirmed))
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, f.repos.orders.byID["O1"].Status)
	require.Len(t, res.Effects, 2)
	assert.Equal(t, usecase.StepNotifyCustomer, res.Effects[0].Step)
	assert.False(t, res.Effects[0].OK)
	assert.Equal(t, "db down", res.Effects[0].Error)
	assert.True(t, res.Effects[1].OK)
}

func TestUpdateStatus_PublishesStatusChangedEvent(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 1)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusConfirmed))
	require.NoError(t, err)

	f.trt.events.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev model.Event) bool {
		return ev.Type == model.EventOrderStatusChanged && ev.AggregateID == "O1"
	}))
}

func TestUpdateStatus_RefundedSetsPaymentStatus(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusDelivered, 1)

	res, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusRefunded))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, res.Order.PaymentStatus)
}

// O1にP2の明細を追加する
func (f *orderFixture) addSecondItem(qty int64) {
	f.repos.orderItems.items = append(f.repos.orderItems.items, model.OrderItem{
		ID: "OI2", OrderID: "O1", ProductID: "P2", ProductName: "Eye Drops", UnitPrice: 500, Quantity: qty, TotalPrice: 500 * qty,
	})
	f.repos.products.byID["P2"] = model.Product{ID: "P2", Name: "Eye Drops", SKU: "ED-1", Price: 500, IsActive: true}
}

// 2件目の在庫行が無ければ1件目の解除も巻き戻る
func TestUpdateStatus_Cancel_RollsBackEarlierItems(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 2)
	f.addSecondItem(1)
	f.repos.inventory.put("P1", 10, 2)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusCancelled))
	assertStatus(t, err, http.StatusConflict)
	assertErrContains(t, err, "P2")

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(10), inv.Quantity)
	assert.Equal(t, int64(2), inv.ReservedQuantity)
	assert.Equal(t, int64(8), inv.AvailableQuantity)
	assert.Empty(t, f.repos.inventory.adjustments)
	assert.Empty(t, f.repos.auditLogs.logs)
	assert.Equal(t, model.OrderStatusConfirmed, f.repos.orders.byID["O1"].Status)
	assert.Nil(t, f.repos.orders.byID["O1"].CancelledAt)
	f.trt.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUpdateStatus_Ship_RollsBackEarlierItems(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 3)
	f.addSecondItem(2)
	f.repos.inventory.put("P1", 10, 3)
	f.repos.inventory.put("P2", 0, 0)

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusShipped))
	assertStatus(t, err, http.StatusConflict)

	inv := f.repos.inventory.get("P1")
	assert.Equal(t, int64(10), inv.Quantity)
	assert.Equal(t, int64(3), inv.ReservedQuantity)
	assert.Empty(t, f.repos.inventory.adjustments)
	assert.Zero(t, f.repos.products.sales["P1"])
	assert.Equal(t, model.OrderStatusConfirmed, f.repos.orders.byID["O1"].Status)
}

// 実在庫が出荷数より少なければ0に丸めず409
func TestUpdateStatus_Ship_QuantityBelowShipment(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusConfirmed, 3)
	f.repos.inventory.put("P1", 3, 3)
	inv := f.repos.inventory.get("P1")
	inv.SetQuantity(1)
	f.repos.inventory.rows[invKey("P1", model.DefaultLocation)] = inv

	_, err := f.uc.UpdateStatus(context.Background(), admin, "O1", statusInput(model.OrderStatusShipped))
	assertStatus(t, err, http.StatusConflict)
	assertErrContains(t, err, "insufficient stock")

	got := f.repos.inventory.get("P1")
	assert.Equal(t, int64(1), got.Quantity)
	assert.Equal(t, int64(3), got.ReservedQuantity)
	assert.Empty(t, f.repos.inventory.adjustments)
}

// 本人もpendingからは遷移表が許す先へ動かせる。支払い・配送項目は管理者のみ
func TestUpdateStatus_OwnerConfirmsPendingOrder(t *testing.T) {
	f := newOrderFixture(t, model.OrderStatusPending, 1)
	f.repos.inventory.put("P1", 10, 1)
	paid := string(model.PaymentStatusRefunded)
	tracking := "TRK-1"

	res, err := f.uc.UpdateStatus(context.Background(), customer, "O1", usecase.UpdateOrderStatusInput{
		Status:         string(model.OrderStatusConfirmed),
		PaymentStatus:  &paid,
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, res.Order.Status)
	assert.Equal(t, model.PaymentStatusPaid, f.repos.orders.byID["O1"].PaymentStatus)
	assert.Empty(t, f.repos.orders.byID["O1"].TrackingNumber)
	// confirmedは在庫に触れない
	assert.Equal(t, int64(1), f.repos.inventory.get("P1").ReservedQuantity)
	assert.Empty(t, f.repos.inventory.adjustments)
}

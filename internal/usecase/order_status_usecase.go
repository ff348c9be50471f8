package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// ポインタがnilの項目は変更しない
type UpdateOrderStatusInput struct {
	Status          string
	PaymentStatus   *string
	TrackingNumber  *string
	Carrier         *string
	Notes           *string
	CancelledReason *string
}

type orderSnapshot struct {
	Status         model.OrderStatus   `json:"status"`
	PaymentStatus  model.PaymentStatus `json:"payment_status"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Carrier        string              `json:"carrier,omitempty"`
}

func snapshotOf(o model.Order) string {
	b, _ := json.Marshal(orderSnapshot{
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		TrackingNumber: o.TrackingNumber,
		Carrier:        o.Carrier,
	})
	return string(b)
}

// 注文ステータスの変更。在庫調整・監査ログまで1トランザクションで行い、
// 通知とイベント送信はcommit後にステップごとの結果として返す。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID string, in UpdateOrderStatusInput) (OrderResult, error) {
	if !actor.Authenticated() {
		return OrderResult{}, errUnauthorized
	}
	target, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return OrderResult{}, badRequest("invalid status")
	}
	var payment *model.PaymentStatus
	if in.PaymentStatus != nil {
		ps, ok := model.ParsePaymentStatus(*in.PaymentStatus)
		if !ok {
			return OrderResult{}, badRequest("invalid payment_status")
		}
		payment = &ps
	}

	var (
		out      OrderOutput
		from     model.OrderStatus
		adjusted int
		adjKind  model.InventoryAdjustmentKind
	)
	now := u.rt.Clock.Now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepoErr(err)
		}

		if !actor.IsAdmin() {
			if !o.IsOwnedBy(actor.UserID) {
				return errForbidden
			}
			// 本人はpendingの間だけ。遷移先は下の遷移表で判定
			if o.Status != model.OrderStatusPending {
				return badRequest("order can no longer be modified")
			}
		}

		before := snapshotOf(o)
		from = o.Status

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return errDB
		}

		if target != o.Status {
			if !o.Status.CanTransitionTo(target) {
				return badRequest(fmt.Sprintf("invalid status transition: %s -> %s", o.Status, target))
			}
			adjKind, adjusted, err = u.applyTransition(ctx, r, actor, &o, target, items, in, now)
			if err != nil {
				return err
			}
			o.Status = target
		}

		// 管理者だけが触れる項目
		if actor.IsAdmin() {
			if payment != nil {
				o.PaymentStatus = *payment
			}
			if in.TrackingNumber != nil {
				o.TrackingNumber = strings.TrimSpace(*in.TrackingNumber)
			}
			if in.Carrier != nil {
				o.Carrier = strings.TrimSpace(*in.Carrier)
			}
			if in.Notes != nil {
				o.Notes = *in.Notes
			}
		}
		o.UpdatedAt = now

		if err := r.Orders().Update(ctx, o); err != nil {
			return mapRepoErr(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ID:           u.rt.IDs.NewID(),
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   before,
			AfterJSON:    snapshotOf(o),
			CreatedAt:    now,
		}); err != nil {
			return errDB
		}

		out = OrderOutput{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return OrderResult{}, err
	}

	res := OrderResult{Order: out, Effects: []Effect{}}
	if from == out.Status {
		return res, nil
	}

	u.rt.Metrics.OrderTransition(string(from), string(out.Status))
	if adjusted > 0 {
		u.rt.Metrics.InventoryAdjusted(string(adjKind), adjusted)
	}

	fx := u.rt.effects()
	fields := []zap.Field{zap.String("order_id", out.ID), zap.String("status", string(out.Status))}
	res.Effects = append(res.Effects,
		fx.notify(ctx, model.Notification{
			UserID:  out.UserID,
			Type:    model.NotificationOrderStatus,
			Title:   "Order " + string(out.Status),
			Message: fmt.Sprintf("Your order %s is now %s.", out.ID, out.Status),
			Link:    "/orders/" + out.ID,
		}, fields...),
		fx.publish(ctx, model.EventOrderStatusChanged, out.ID, now, map[string]any{
			"order_id": out.ID,
			"from":     from,
			"to":       out.Status,
			"actor_id": actor.UserID,
		}, fields...),
	)
	return res, nil
}

// ステータスごとの在庫・時刻の反映。調整した在庫行の数を返す。
func (u *OrderUsecase) applyTransition(
	ctx context.Context,
	r repo.TxRepos,
	actor Actor,
	o *model.Order,
	target model.OrderStatus,
	items []model.OrderItem,
	in UpdateOrderStatusInput,
	now time.Time,
) (model.InventoryAdjustmentKind, int, error) {
	switch target {
	case model.OrderStatusShipped:
		n, err := u.adjustInventory(ctx, r, actor, o.ID, items, model.AdjustmentShip, func(inv *model.Inventory, q int64) error {
			return inv.Ship(q)
		})
		if err != nil {
			return "", 0, err
		}
		for _, it := range items {
			if err := r.Products().IncrementSalesCount(ctx, it.ProductID, it.Quantity); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return "", 0, errDB
			}
		}
		o.ShippedAt = &now
		return model.AdjustmentShip, n, nil

	case model.OrderStatusCancelled:
		n, err := u.adjustInventory(ctx, r, actor, o.ID, items, model.AdjustmentRelease, func(inv *model.Inventory, q int64) error {
			inv.Release(q)
			return nil
		})
		if err != nil {
			return "", 0, err
		}
		o.CancelledAt = &now
		if in.CancelledReason != nil {
			o.CancelledReason = strings.TrimSpace(*in.CancelledReason)
		}
		return model.AdjustmentRelease, n, nil

	case model.OrderStatusDelivered:
		o.DeliveredAt = &now

	case model.OrderStatusRefunded:
		o.PaymentStatus = model.PaymentStatusRefunded
	}
	// confirmed / processing は在庫に触れない（引当はチェックアウト時）
	return "", 0, nil
}

// 明細ごとに在庫行をロックして計算・保存・履歴作成。1件でも失敗すれば全体をロールバック。
func (u *OrderUsecase) adjustInventory(
	ctx context.Context,
	r repo.TxRepos,
	actor Actor,
	orderID string,
	items []model.OrderItem,
	kind model.InventoryAdjustmentKind,
	apply func(inv *model.Inventory, q int64) error,
) (int, error) {
	sorted := make([]model.OrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	actorID := actor.UserID
	for _, it := range sorted {
		inv, err := r.Inventory().FindForUpdate(ctx, it.ProductID, model.DefaultLocation)
		if errors.Is(err, repo.ErrNotFound) {
			return 0, NewHTTPError(http.StatusConflict, "inventory record missing for product "+it.ProductID)
		}
		if err != nil {
			return 0, errDB
		}
		before := inv
		if err := apply(&inv, it.Quantity); err != nil {
			return 0, NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock for product %s: on hand %d, shipping %d", it.ProductID, inv.Quantity, it.Quantity))
		}
		if err := r.Inventory().Save(ctx, inv); err != nil {
			return 0, errDB
		}

		adj := model.NewAdjustment(u.rt.IDs.NewID(), kind, before, inv)
		adj.OrderID = &orderID
		adj.ActorUserID = &actorID
		adj.Reason = "order " + string(kind)
		if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
			return 0, errDB
		}
	}
	return len(sorted), nil
}

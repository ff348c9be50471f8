package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type ReturnUsecase struct {
	tx      repo.TransactionManager
	returns repo.ReturnRepository
	rt      Runtime
}

func NewReturnUsecase(tx repo.TransactionManager, returns repo.ReturnRepository, rt Runtime) *ReturnUsecase {
	return &ReturnUsecase{tx: tx, returns: returns, rt: rt}
}

type CreateReturnInput struct {
	OrderID     string
	OrderItemID *string
	Reason      string
	Description string
}

type UpdateReturnStatusInput struct {
	Status     string
	AdminNotes *string
}

type ReturnResult struct {
	Return  model.ReturnRequest `json:"return"`
	Effects []Effect            `json:"effects"`
}

type ReturnListOutput struct {
	Items []model.ReturnRequest `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// 返品申請。注文行をロックしてから未完了の返品を確認する。
func (u *ReturnUsecase) Create(ctx context.Context, actor Actor, in CreateReturnInput) (ReturnResult, error) {
	if !actor.Authenticated() {
		return ReturnResult{}, errUnauthorized
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return ReturnResult{}, badRequest("order_id required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return ReturnResult{}, badRequest("reason required")
	}
	if len(reason) > 255 {
		return ReturnResult{}, badRequest("reason too long")
	}
	if in.OrderItemID != nil && strings.TrimSpace(*in.OrderItemID) == "" {
		in.OrderItemID = nil
	}

	var created model.ReturnRequest
	now := u.rt.Clock.Now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if err != nil {
			return mapRepoErr(err)
		}
		if !actor.IsAdmin() && !o.IsOwnedBy(actor.UserID) {
			return errForbidden
		}
		if o.Status != model.OrderStatusDelivered {
			return badRequest("only delivered orders can be returned")
		}

		refund := o.TotalAmount
		if in.OrderItemID != nil {
			it, err := r.OrderItems().FindByID(ctx, *in.OrderItemID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && it.OrderID != o.ID) {
				return badRequest("order item does not belong to order")
			}
			if err != nil {
				return errDB
			}
			refund = it.TotalPrice
		}

		existing, err := r.Returns().ListByOrderID(ctx, o.ID)
		if err != nil {
			return errDB
		}
		if prev, ok := model.ConflictingReturn(existing, in.OrderItemID); ok {
			if prev.IsOpen() {
				return badRequest("an open return already exists")
			}
			return badRequest("already returned")
		}

		created = model.ReturnRequest{
			ID:           u.rt.IDs.NewID(),
			OrderID:      o.ID,
			OrderItemID:  in.OrderItemID,
			UserID:       o.UserID,
			Reason:       reason,
			Description:  strings.TrimSpace(in.Description),
			Status:       model.ReturnStatusPending,
			RefundAmount: refund,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.Returns().Create(ctx, created); err != nil {
			return mapRepoErr(err)
		}
		return nil
	})
	if err != nil {
		return ReturnResult{}, err
	}

	fx := u.rt.effects()
	fields := []zap.Field{zap.String("return_id", created.ID), zap.String("order_id", created.OrderID)}
	return ReturnResult{
		Return: created,
		Effects: []Effect{
			fx.notify(ctx, model.Notification{
				UserID:  created.UserID,
				Type:    model.NotificationReturnStatus,
				Title:   "Return requested",
				Message: fmt.Sprintf("Your return for order %s was received.", created.OrderID),
				Link:    "/returns/" + created.ID,
			}, fields...),
			fx.publish(ctx, model.EventReturnCreated, created.ID, now, map[string]any{
				"return_id":     created.ID,
				"order_id":      created.OrderID,
				"refund_amount": created.RefundAmount,
			}, fields...),
		},
	}, nil
}

func (u *ReturnUsecase) List(ctx context.Context, actor Actor, page, limit int, status string) (ReturnListOutput, error) {
	if !actor.Authenticated() {
		return ReturnListOutput{}, errUnauthorized
	}
	if err := validatePaging(page, limit); err != nil {
		return ReturnListOutput{}, err
	}
	if status != "" {
		if _, ok := model.ParseReturnStatus(status); !ok {
			return ReturnListOutput{}, badRequest("invalid status")
		}
	}
	f := repo.ReturnListFilter{Page: page, Limit: limit, Status: status}
	if !actor.IsAdmin() {
		uid := actor.UserID
		f.UserID = &uid
	}
	list, total, err := u.returns.List(ctx, f)
	if err != nil {
		return ReturnListOutput{}, errDB
	}
	return ReturnListOutput{Items: list, Total: total, Page: page, Limit: limit}, nil
}

func (u *ReturnUsecase) Get(ctx context.Context, actor Actor, id string) (model.ReturnRequest, error) {
	if !actor.Authenticated() {
		return model.ReturnRequest{}, errUnauthorized
	}
	rr, err := u.returns.FindByID(ctx, id)
	if err != nil {
		return model.ReturnRequest{}, mapRepoErr(err)
	}
	if !actor.IsAdmin() && rr.UserID != actor.UserID {
		return model.ReturnRequest{}, errNotFound
	}
	return rr, nil
}

// 管理者による返品ステータス更新
func (u *ReturnUsecase) UpdateStatus(ctx context.Context, actor Actor, id string, in UpdateReturnStatusInput) (ReturnResult, error) {
	if !actor.Authenticated() {
		return ReturnResult{}, errUnauthorized
	}
	if !actor.IsAdmin() {
		return ReturnResult{}, errForbidden
	}
	target, ok := model.ParseReturnStatus(strings.TrimSpace(in.Status))
	if !ok {
		return ReturnResult{}, badRequest("invalid status")
	}

	var (
		updated     model.ReturnRequest
		from        model.ReturnStatus
		orderRefund bool
		orderBefore model.OrderStatus
	)
	now := u.rt.Clock.Now()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rr, err := r.Returns().FindByID(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}
		from = rr.Status
		if !rr.Status.CanTransitionTo(target) {
			return badRequest(fmt.Sprintf("invalid status transition: %s -> %s", rr.Status, target))
		}
		beforeJSON, _ := json.Marshal(map[string]any{"status": rr.Status})

		rr.Status = target
		rr.Stamp(target, now)
		if in.AdminNotes != nil {
			rr.AdminNotes = *in.AdminNotes
		}
		rr.UpdatedAt = now
		if err := r.Returns().Update(ctx, rr); err != nil {
			return mapRepoErr(err)
		}

		// 注文全体の返金なら注文も返金済みにする
		if target == model.ReturnStatusRefunded && rr.OrderItemID == nil {
			o, err := r.Orders().FindByIDForUpdate(ctx, rr.OrderID)
			if err != nil {
				return mapRepoErr(err)
			}
			if o.Status.CanTransitionTo(model.OrderStatusRefunded) {
				orderBefore = o.Status
				o.Status = model.OrderStatusRefunded
				o.PaymentStatus = model.PaymentStatusRefunded
				o.UpdatedAt = now
				if err := r.Orders().Update(ctx, o); err != nil {
					return mapRepoErr(err)
				}
				orderRefund = true
			}
		}

		afterJSON, _ := json.Marshal(map[string]any{"status": rr.Status, "order_refunded": orderRefund})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ID:           u.rt.IDs.NewID(),
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateReturnStatus,
			ResourceType: model.AuditResourceReturn,
			ResourceID:   rr.ID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    now,
		}); err != nil {
			return errDB
		}

		updated = rr
		return nil
	})
	if err != nil {
		return ReturnResult{}, err
	}

	u.rt.Metrics.ReturnTransition(string(from), string(updated.Status))
	if orderRefund {
		u.rt.Metrics.OrderTransition(string(orderBefore), string(model.OrderStatusRefunded))
	}

	fx := u.rt.effects()
	fields := []zap.Field{zap.String("return_id", updated.ID), zap.String("status", string(updated.Status))}
	return ReturnResult{
		Return: updated,
		Effects: []Effect{
			fx.notify(ctx, model.Notification{
				UserID:  updated.UserID,
				Type:    model.NotificationReturnStatus,
				Title:   "Return " + string(updated.Status),
				Message: fmt.Sprintf("Your return %s is now %s.", updated.ID, updated.Status),
				Link:    "/returns/" + updated.ID,
			}, fields...),
			fx.publish(ctx, model.EventReturnStatusChanged, updated.ID, now, map[string]any{
				"return_id":      updated.ID,
				"order_id":       updated.OrderID,
				"from":           from,
				"to":             updated.Status,
				"order_refunded": orderRefund,
			}, fields...),
		},
	}, nil
}

// 本人による取り下げ。pendingのみ、物理削除。
func (u *ReturnUsecase) Cancel(ctx context.Context, actor Actor, id string) error {
	if !actor.Authenticated() {
		return errUnauthorized
	}
	rr, err := u.returns.FindByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if rr.UserID != actor.UserID {
		return errForbidden
	}
	if rr.Status != model.ReturnStatusPending {
		return badRequest("only pending returns can be cancelled")
	}
	if err := u.returns.Delete(ctx, rr.ID); err != nil {
		return mapRepoErr(err)
	}
	return nil
}

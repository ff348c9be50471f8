package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	addresses  repo.AddressRepository
	rt         Runtime
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	addresses repo.AddressRepository,
	rt Runtime,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, orderItems: orderItems, addresses: addresses, rt: rt}
}

type PlaceOrderInput struct {
	AddressID      string
	IdempotencyKey string
	Notes          string
}

type OrderOutput struct {
	model.Order
	Items []model.OrderItem `json:"items"`
}

type OrderResult struct {
	Order   OrderOutput `json:"order"`
	Effects []Effect    `json:"effects"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

var errIdempotentReplay = errors.New("idempotent replay")

// チェックアウト。カートの各商品を在庫から引当して注文を作る。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (OrderResult, error) {
	if !actor.Authenticated() {
		return OrderResult{}, errUnauthorized
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderResult{}, badRequest("invalid idempotency_key")
	}
	if strings.TrimSpace(in.AddressID) == "" {
		return OrderResult{}, badRequest("invalid address_id")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		return OrderResult{}, mapRepoErr(err)
	}
	if addr.UserID != actor.UserID {
		return OrderResult{}, errForbidden
	}

	var (
		out      OrderOutput
		replayed bool
	)
	now := u.rt.Clock.Now()

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, actor.UserID, key)
		if err != nil {
			return errDB
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return errDB
			}
			out = OrderOutput{Order: existing, Items: items}
			replayed = true
			return nil
		}

		cart, err := r.Carts().FindActiveByUserID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return badRequest("cart empty")
		}
		if err != nil {
			return errDB
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return errDB
		}
		if len(cartItems) == 0 {
			return badRequest("cart empty")
		}

		// 行ロックは product_id 順に取る
		sort.Slice(cartItems, func(i, j int) bool { return cartItems[i].ProductID < cartItems[j].ProductID })

		order := model.Order{
			ID:                 u.rt.IDs.NewID(),
			UserID:             actor.UserID,
			Status:             model.OrderStatusPending,
			PaymentStatus:      model.PaymentStatusPending,
			ShippingName:       addr.Name,
			ShippingPostalCode: addr.PostalCode,
			ShippingAddress:    formatAddress(addr),
			ShippingPhone:      addr.Phone,
			Notes:              strings.TrimSpace(in.Notes),
			IdempotencyKey:     key,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		orderItems := make([]model.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
				return badRequest("product unavailable: " + ci.ProductID)
			}
			if err != nil {
				return errDB
			}

			inv, err := r.Inventory().FindForUpdate(ctx, ci.ProductID, model.DefaultLocation)
			if errors.Is(err, repo.ErrNotFound) {
				return badRequest("out of stock")
			}
			if err != nil {
				return errDB
			}
			before := inv
			if err := inv.Reserve(ci.Quantity); err != nil {
				return badRequest("out of stock")
			}
			if err := r.Inventory().Save(ctx, inv); err != nil {
				return errDB
			}
			adj := model.NewAdjustment(u.rt.IDs.NewID(), model.AdjustmentReserve, before, inv)
			adj.OrderID = &order.ID
			adj.Reason = "checkout"
			if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
				return errDB
			}

			//スナップショット
			line := ci.Subtotal()
			orderItems = append(orderItems, model.OrderItem{
				ID:          u.rt.IDs.NewID(),
				ProductID:   p.ID,
				ProductName: p.Name,
				SKU:         p.SKU,
				UnitPrice:   ci.UnitPriceSnapshot,
				Quantity:    ci.Quantity,
				TotalPrice:  line,
				CreatedAt:   now,
			})
			order.TotalAmount += line
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			//同時に同じキーが入った
			if errors.Is(err, repo.ErrConflict) {
				return errIdempotentReplay
			}
			return errDB
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return errDB
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return errDB
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return errDB
		}

		out = OrderOutput{Order: order, Items: orderItems}
		return nil
	})

	if errors.Is(err, errIdempotentReplay) {
		existing, found, ferr := u.orders.FindByIdempotencyKey(ctx, actor.UserID, key)
		if ferr != nil || !found {
			return OrderResult{}, NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		items, ferr := u.orderItems.ListByOrderID(ctx, existing.ID)
		if ferr != nil {
			return OrderResult{}, errDB
		}
		return OrderResult{Order: OrderOutput{Order: existing, Items: items}, Effects: []Effect{}}, nil
	}
	if err != nil {
		return OrderResult{}, err
	}

	res := OrderResult{Order: out, Effects: []Effect{}}
	if replayed {
		return res, nil
	}

	u.rt.Metrics.InventoryAdjusted(string(model.AdjustmentReserve), len(out.Items))
	res.Effects = append(res.Effects, u.rt.effects().publish(ctx,
		model.EventOrderCreated, out.ID, now,
		map[string]any{"order_id": out.ID, "user_id": out.UserID, "total_amount": out.TotalAmount, "items": len(out.Items)},
		zap.String("order_id", out.ID),
	))
	return res, nil
}

type ListOrdersInput struct {
	Page      int
	Limit     int
	Status    string
	ProductID string
	From      *time.Time
	To        *time.Time
}

// 一般ユーザーは自分の注文だけ。管理者は全件を絞り込みで。
func (u *OrderUsecase) List(ctx context.Context, actor Actor, in ListOrdersInput) (OrderListOutput, error) {
	if !actor.Authenticated() {
		return OrderListOutput{}, errUnauthorized
	}
	if err := validatePaging(in.Page, in.Limit); err != nil {
		return OrderListOutput{}, err
	}
	if in.Status != "" {
		if _, ok := model.ParseOrderStatus(in.Status); !ok {
			return OrderListOutput{}, badRequest("invalid status")
		}
	}

	f := repo.OrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: in.Status,
		From:   in.From,
		To:     in.To,
	}
	if !actor.IsAdmin() {
		uid := actor.UserID
		f.UserID = &uid
	}
	if in.ProductID != "" {
		pid := in.ProductID
		f.ProductID = &pid
	}

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, errDB
	}
	outs, err := u.withItems(ctx, orders)
	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: outs, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 他人の注文は「存在しない扱い」にする
func (u *OrderUsecase) Get(ctx context.Context, actor Actor, orderID string) (OrderOutput, error) {
	if !actor.Authenticated() {
		return OrderOutput{}, errUnauthorized
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, mapRepoErr(err)
	}
	if !actor.IsAdmin() && !o.IsOwnedBy(actor.UserID) {
		return OrderOutput{}, errNotFound
	}
	items, err := u.orderItems.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, errDB
	}
	return OrderOutput{Order: o, Items: items}, nil
}

func (u *OrderUsecase) withItems(ctx context.Context, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := u.orderItems.ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, errDB
	}
	byOrder := make(map[string][]model.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		its := byOrder[o.ID]
		if its == nil {
			its = []model.OrderItem{}
		}
		outs = append(outs, OrderOutput{Order: o, Items: its})
	}
	return outs, nil
}

func formatAddress(a model.Address) string {
	parts := []string{a.Prefecture, a.City, a.Line1}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	return strings.Join(parts, " ")
}

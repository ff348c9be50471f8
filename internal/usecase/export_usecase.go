package usecase

import (
	"context"
	"io"
	"net/http"

	"storefront/internal/document"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const exportPageSize = 100

type ExportOrdersInput = ListOrdersInput

type ExportUsecase struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	users      repo.UserRepository
	clock      Clock
}

func NewExportUsecase(orders repo.OrderRepository, orderItems repo.OrderItemRepository, users repo.UserRepository, rt Runtime) *ExportUsecase {
	return &ExportUsecase{orders: orders, orderItems: orderItems, users: users, clock: rt.Clock}
}

// 条件に合う注文を全件xlsxにする
func (u *ExportUsecase) Orders(ctx context.Context, actor Actor, in ExportOrdersInput, w io.Writer) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if in.Status != "" {
		if _, ok := model.ParseOrderStatus(in.Status); !ok {
			return badRequest("invalid status")
		}
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return badRequest("to must be after from")
	}

	f := repo.OrderListFilter{Limit: exportPageSize, Status: in.Status, From: in.From, To: in.To}
	if in.ProductID != "" {
		pid := in.ProductID
		f.ProductID = &pid
	}

	emails := map[string]string{}
	var rows []document.OrderExportRow
	for page := 1; ; page++ {
		f.Page = page
		orders, total, err := u.orders.List(ctx, f)
		if err != nil {
			return errDB
		}
		if len(orders) == 0 {
			break
		}

		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		items, err := u.orderItems.ListByOrderIDs(ctx, ids)
		if err != nil {
			return errDB
		}
		byOrder := make(map[string][]model.OrderItem, len(orders))
		for _, it := range items {
			byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
		}

		for _, o := range orders {
			email, ok := emails[o.UserID]
			if !ok {
				email = u.customerEmail(ctx, o.UserID)
				emails[o.UserID] = email
			}
			for _, it := range byOrder[o.ID] {
				rows = append(rows, document.OrderExportRow{
					OrderID:       o.ID,
					OrderedAt:     o.CreatedAt,
					CustomerEmail: email,
					Status:        string(o.Status),
					PaymentStatus: string(o.PaymentStatus),
					ProductName:   it.ProductName,
					SKU:           it.SKU,
					Quantity:      it.Quantity,
					UnitPrice:     it.UnitPrice,
					LineTotal:     it.TotalPrice,
					OrderTotal:    o.TotalAmount,
				})
			}
		}
		if int64(page*exportPageSize) >= total {
			break
		}
	}

	if err := document.WriteOrderExport(w, rows); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "export failed")
	}
	return nil
}

// 1注文の請求書PDF
func (u *ExportUsecase) Invoice(ctx context.Context, actor Actor, orderID string, w io.Writer) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return mapRepoErr(err)
	}
	items, err := u.orderItems.ListByOrderID(ctx, o.ID)
	if err != nil {
		return errDB
	}

	inv := document.Invoice{
		OrderID:       o.ID,
		IssuedAt:      u.clock.Now(),
		OrderedAt:     o.CreatedAt,
		CustomerEmail: u.customerEmail(ctx, o.UserID),
		ShippingName:  o.ShippingName,
		PostalCode:    o.ShippingPostalCode,
		Address:       o.ShippingAddress,
		Phone:         o.ShippingPhone,
		Total:         o.TotalAmount,
	}
	for _, it := range items {
		inv.Lines = append(inv.Lines, document.InvoiceLine{
			Name:      it.ProductName,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.TotalPrice,
		})
	}
	if err := document.WriteInvoice(w, inv); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "invoice generation failed")
	}
	return nil
}

// 退会済みなどで見つからなければ空
func (u *ExportUsecase) customerEmail(ctx context.Context, userID string) string {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Email
}

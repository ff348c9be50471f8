package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type createOrderRequest struct {
	AddressID string `json:"address_id"`
	Notes     string `json:"notes"`
}

type orderStatusRequest struct {
	Status          string  `json:"status"`
	PaymentStatus   *string `json:"payment_status"`
	TrackingNumber  *string `json:"tracking_number"`
	Carrier         *string `json:"carrier"`
	Notes           *string `json:"notes"`
	CancelledReason *string `json:"cancelled_reason"`
}

func (h *OrderHandler) RegisterRoutes(api *echo.Group, g Guards) {
	orders := api.Group("/orders", g.Auth...)
	orders.POST("", h.create)
	orders.GET("", h.list)
	orders.GET("/:id", h.detail)
	// 同じ処理を2つのパスで受ける
	orders.POST("/:id", h.updateStatus)
	orders.PUT("/:id/status", h.updateStatus)
}

// チェックアウト。同じキーなら同じ注文を返す。
func (h *OrderHandler) create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.PlaceOrder(c.Request().Context(), actorFrom(c), usecase.PlaceOrderInput{
		AddressID:      req.AddressID,
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
		Notes:          req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 一般ユーザーは自分の注文だけ
func (h *OrderHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}
	from, err := queryTimePtr(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTimePtr(c, "to")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), actorFrom(c), usecase.ListOrdersInput{
		Page:      page,
		Limit:     limit,
		Status:    c.QueryParam("status"),
		ProductID: c.QueryParam("product_id"),
		From:      from,
		To:        to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	var req orderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.UpdateStatus(c.Request().Context(), actorFrom(c), c.Param("id"), usecase.UpdateOrderStatusInput{
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		TrackingNumber:  req.TrackingNumber,
		Carrier:         req.Carrier,
		Notes:           req.Notes,
		CancelledReason: req.CancelledReason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

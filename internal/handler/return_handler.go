package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 返品申請
type ReturnHandler struct {
	uc *usecase.ReturnUsecase
}

func NewReturnHandler(uc *usecase.ReturnUsecase) *ReturnHandler {
	return &ReturnHandler{uc: uc}
}

type createReturnRequest struct {
	OrderID     string  `json:"order_id"`
	OrderItemID *string `json:"order_item_id"`
	Reason      string  `json:"reason"`
	Description string  `json:"description"`
}

type returnStatusRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

func (h *ReturnHandler) RegisterRoutes(api *echo.Group, g Guards) {
	returns := api.Group("/returns", g.Auth...)
	returns.POST("", h.create)
	returns.GET("", h.list)
	returns.GET("/:id", h.detail)
	returns.PUT("/:id/status", h.updateStatus)
	returns.DELETE("/:id", h.cancel)
}

func (h *ReturnHandler) create(c echo.Context) error {
	var req createReturnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.Create(c.Request().Context(), actorFrom(c), usecase.CreateReturnInput{
		OrderID:     req.OrderID,
		OrderItemID: req.OrderItemID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ReturnHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), actorFrom(c), page, limit, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReturnHandler) detail(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 管理者のみ
func (h *ReturnHandler) updateStatus(c echo.Context) error {
	var req returnStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.UpdateStatus(c.Request().Context(), actorFrom(c), c.Param("id"), usecase.UpdateReturnStatusInput{
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReturnHandler) cancel(c echo.Context) error {
	if err := h.uc.Cancel(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

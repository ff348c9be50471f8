package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	uc *usecase.NotificationUsecase
}

func NewNotificationHandler(uc *usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

func (h *NotificationHandler) RegisterRoutes(api *echo.Group, g Guards) {
	n := api.Group("/notifications", g.Auth...)
	n.GET("", h.list)
	n.POST("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	unread, err := queryBoolPtr(c, "unread")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.List(c.Request().Context(), actorFrom(c), unread != nil && *unread, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) markRead(c echo.Context) error {
	if err := h.uc.MarkRead(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
	maxImportBytes  = 10 << 20
)

// 管理画面向けの一括操作・入出力・集計・ユーザー管理
type AdminHandler struct {
	bulk      *usecase.BulkUsecase
	imports   *usecase.ImportUsecase
	exports   *usecase.ExportUsecase
	analytics *usecase.AnalyticsUsecase
	auth      *usecase.AuthUsecase
	auditLogs *usecase.AuditLogUsecase
}

func NewAdminHandler(
	bulk *usecase.BulkUsecase,
	imports *usecase.ImportUsecase,
	exports *usecase.ExportUsecase,
	analytics *usecase.AnalyticsUsecase,
	auth *usecase.AuthUsecase,
	auditLogs *usecase.AuditLogUsecase,
) *AdminHandler {
	return &AdminHandler{
		bulk:      bulk,
		imports:   imports,
		exports:   exports,
		analytics: analytics,
		auth:      auth,
		auditLogs: auditLogs,
	}
}

func (h *AdminHandler) RegisterRoutes(api *echo.Group, g Guards) {
	admin := api.Group("/admin", g.Admin...)
	admin.POST("/products/bulk-operations", h.bulkOperations)
	admin.POST("/products/bulk-import", h.bulkImport)
	admin.GET("/export/orders", h.exportOrders)
	admin.GET("/export/orders/:id/bill", h.exportBill)
	admin.GET("/analytics", h.analyticsReport)
	admin.POST("/users/:id/force-logout", h.forceLogout)
	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminHandler) bulkOperations(c echo.Context) error {
	var req usecase.BulkInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.bulk.Apply(c.Request().Context(), actorFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// multipartのfileフィールドでxlsxを受け取る
func (h *AdminHandler) bulkImport(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	if fh.Size > maxImportBytes {
		return badRequest(c, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "cannot open file")
	}
	defer f.Close()

	out, err := h.imports.ImportProducts(c.Request().Context(), actorFrom(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) exportOrders(c echo.Context) error {
	from, err := queryTimePtr(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTimePtr(c, "to")
	if err != nil {
		return writeError(c, err)
	}

	// 失敗時にJSONを返せるよう一度バッファする
	var buf bytes.Buffer
	err = h.exports.Orders(c.Request().Context(), actorFrom(c), usecase.ExportOrdersInput{
		Status:    c.QueryParam("status"),
		ProductID: c.QueryParam("product_id"),
		From:      from,
		To:        to,
	}, &buf)
	if err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *AdminHandler) exportBill(c echo.Context) error {
	id := c.Param("id")
	var buf bytes.Buffer
	if err := h.exports.Invoice(c.Request().Context(), actorFrom(c), id, &buf); err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, id))
	return c.Blob(http.StatusOK, pdfContentType, buf.Bytes())
}

func (h *AdminHandler) analyticsReport(c echo.Context) error {
	from, err := queryTimePtr(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTimePtr(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.analytics.Report(c.Request().Context(), actorFrom(c), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) forceLogout(c echo.Context) error {
	out, err := h.auth.ForceLogout(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	page, limit, err := pageParams(c, 50)
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
	list, err := h.auditLogs.List(c.Request().Context(), actorFrom(c), usecase.AuditLogQuery{
		ActorUserID:  c.QueryParam("actor_user_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

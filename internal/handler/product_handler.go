package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products, /categories と管理者の商品・在庫API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

type productRequest struct {
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	SKU             string  `json:"sku"`
	Description     string  `json:"description"`
	Price           int64   `json:"price"`
	CompareAtPrice  *int64  `json:"compare_at_price"`
	CategoryID      *string `json:"category_id"`
	ImageURL        string  `json:"image_url"`
	IsActive        bool    `json:"is_active"`
	IsFeatured      bool    `json:"is_featured"`
	InitialQuantity int64   `json:"initial_quantity"`
}

func (r productRequest) input() usecase.ProductInput {
	return usecase.ProductInput{
		Name:            r.Name,
		Slug:            r.Slug,
		SKU:             r.SKU,
		Description:     r.Description,
		Price:           r.Price,
		CompareAtPrice:  r.CompareAtPrice,
		CategoryID:      r.CategoryID,
		ImageURL:        r.ImageURL,
		IsActive:        r.IsActive,
		IsFeatured:      r.IsFeatured,
		InitialQuantity: r.InitialQuantity,
	}
}

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type inventoryRequest struct {
	Quantity *int64 `json:"quantity"`
	Reason   string `json:"reason"`
}

func (h *ProductHandler) RegisterRoutes(api *echo.Group, g Guards) {
	api.GET("/products", h.list, g.Optional)
	api.GET("/products/:id", h.detail, g.Optional)
	api.GET("/categories", h.listCategories)

	api.POST("/products", h.create, g.Admin...)
	api.PUT("/products/:id", h.update, g.Admin...)
	api.DELETE("/products/:id", h.delete, g.Admin...)

	admin := api.Group("/admin", g.Admin...)
	admin.POST("/categories", h.createCategory)
	admin.GET("/inventory", h.listInventory)
	admin.PUT("/inventory/:product_id", h.setInventory)
	admin.GET("/inventory/:product_id/adjustments", h.listAdjustments)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}
	featured, err := queryBoolPtr(c, "featured")
	if err != nil {
		return writeError(c, err)
	}
	minPrice, err := queryInt64Ptr(c, "min_price")
	if err != nil {
		return writeError(c, err)
	}
	maxPrice, err := queryInt64Ptr(c, "max_price")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), actorFrom(c), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Featured: featured,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.uc.Create(c.Request().Context(), actorFrom(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.uc.Update(c.Request().Context(), actorFrom(c), c.Param("id"), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) listCategories(c echo.Context) error {
	list, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ProductHandler) createCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cat, err := h.uc.CreateCategory(c.Request().Context(), actorFrom(c), req.Name, req.Slug)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *ProductHandler) listInventory(c echo.Context) error {
	page, limit, err := pageParams(c, 50)
	if err != nil {
		return writeError(c, err)
	}
	lowStock, err := queryInt64Ptr(c, "low_stock")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListInventory(c.Request().Context(), actorFrom(c), lowStock, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 実在庫を絶対値で設定
func (h *ProductHandler) setInventory(c echo.Context) error {
	var req inventoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Quantity == nil {
		return badRequest(c, "quantity required")
	}
	out, err := h.uc.SetInventory(c.Request().Context(), actorFrom(c), c.Param("product_id"), *req.Quantity, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) listAdjustments(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.ListAdjustments(c.Request().Context(), actorFrom(c), c.Param("product_id"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

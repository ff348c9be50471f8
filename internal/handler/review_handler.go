package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ReviewHandler struct {
	uc *usecase.ReviewUsecase
}

func NewReviewHandler(uc *usecase.ReviewUsecase) *ReviewHandler {
	return &ReviewHandler{uc: uc}
}

type createReviewRequest struct {
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	AuthorName string `json:"author_name"`
}

type approveReviewRequest struct {
	IsApproved *bool `json:"is_approved"`
}

func (h *ReviewHandler) RegisterRoutes(api *echo.Group, g Guards) {
	api.GET("/reviews", h.list, g.Optional)
	// 未ログインでも投稿できる
	api.POST("/reviews", h.create, g.Optional)
	api.PUT("/admin/reviews/:id", h.approve, g.Admin...)
	api.DELETE("/admin/reviews/:id", h.delete, g.Admin...)
}

func (h *ReviewHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}
	approved, err := queryBoolPtr(c, "approved")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), actorFrom(c), c.QueryParam("product_id"), approved, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) create(c echo.Context) error {
	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rv, err := h.uc.Create(c.Request().Context(), actorFrom(c), usecase.CreateReviewInput{
		ProductID:  req.ProductID,
		Rating:     req.Rating,
		Title:      req.Title,
		Body:       req.Body,
		AuthorName: req.AuthorName,
		ClientIP:   c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) approve(c echo.Context) error {
	var req approveReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.IsApproved == nil {
		return badRequest(c, "is_approved required")
	}
	rv, err := h.uc.SetApproved(c.Request().Context(), actorFrom(c), c.Param("id"), *req.IsApproved)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

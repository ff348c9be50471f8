package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type BlogHandler struct {
	uc *usecase.BlogUsecase
}

func NewBlogHandler(uc *usecase.BlogUsecase) *BlogHandler {
	return &BlogHandler{uc: uc}
}

type blogPostRequest struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Content         string   `json:"content"`
	Excerpt         string   `json:"excerpt"`
	CoverImageURL   string   `json:"cover_image_url"`
	Status          string   `json:"status"`
	Tags            []string `json:"tags"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	FocusKeyword    string   `json:"focus_keyword"`
}

func (r blogPostRequest) input() usecase.BlogPostInput {
	return usecase.BlogPostInput{
		Title:           r.Title,
		Slug:            r.Slug,
		Content:         r.Content,
		Excerpt:         r.Excerpt,
		CoverImageURL:   r.CoverImageURL,
		Status:          model.BlogPostStatus(r.Status),
		Tags:            r.Tags,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		FocusKeyword:    r.FocusKeyword,
	}
}

func (h *BlogHandler) RegisterRoutes(api *echo.Group, g Guards) {
	posts := api.Group("/blog/posts")
	posts.GET("", h.list, g.Optional)
	posts.GET("/:id", h.detail, g.Optional)
	posts.POST("", h.create, g.Admin...)
	posts.PUT("/:id", h.update, g.Admin...)
	posts.DELETE("/:id", h.delete, g.Admin...)

	api.GET("/admin/blog/posts/:id/seo", h.seo, g.Admin...)
}

func (h *BlogHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 10)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), actorFrom(c), repo.BlogPostListQuery{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		Tag:    c.QueryParam("tag"),
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BlogHandler) detail(c echo.Context) error {
	p, err := h.uc.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *BlogHandler) create(c echo.Context) error {
	var req blogPostRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.uc.Create(c.Request().Context(), actorFrom(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *BlogHandler) update(c echo.Context) error {
	var req blogPostRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.uc.Update(c.Request().Context(), actorFrom(c), c.Param("id"), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *BlogHandler) delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHandler) seo(c echo.Context) error {
	report, err := h.uc.AuditSEO(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

package usecase

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

var errTooManyReviews = NewHTTPError(http.StatusTooManyRequests, "too many reviews, try again later")

type CreateReviewInput struct {
	ProductID  string
	Rating     int
	Title      string
	Body       string
	AuthorName string
	// 未ログイン時のレート制限キー
	ClientIP string
}

type ReviewListOutput struct {
	Items []model.Review   `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Stats repo.ReviewStats `json:"stats"`
}

type ReviewUsecase struct {
	reviews  repo.ReviewRepository
	products repo.ProductRepository
	limiter  RateLimiter
	ids      IDGenerator
	log      *zap.Logger
	metrics  Metrics
}

func NewReviewUsecase(reviews repo.ReviewRepository, products repo.ProductRepository, limiter RateLimiter, rt Runtime) *ReviewUsecase {
	return &ReviewUsecase{
		reviews:  reviews,
		products: products,
		limiter:  limiter,
		ids:      rt.IDs,
		log:      rt.Log,
		metrics:  rt.Metrics,
	}
}

// 承認済みのみ。管理者はapproved=falseで未承認も見られる
func (u *ReviewUsecase) List(ctx context.Context, actor Actor, productID string, approved *bool, page, limit int) (ReviewListOutput, error) {
	if err := validatePaging(page, limit); err != nil {
		return ReviewListOutput{}, err
	}
	if approved != nil && !*approved && !actor.IsAdmin() {
		return ReviewListOutput{}, errForbidden
	}

	items, total, err := u.reviews.List(ctx, repo.ReviewListQuery{
		ProductID: productID,
		Approved:  approved,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return ReviewListOutput{}, errDB
	}

	var stats repo.ReviewStats
	if productID != "" {
		stats, err = u.reviews.Stats(ctx, productID)
		if err != nil {
			return ReviewListOutput{}, errDB
		}
	}
	return ReviewListOutput{Items: items, Total: total, Page: page, Limit: limit, Stats: stats}, nil
}

// 承認待ちで作る
func (u *ReviewUsecase) Create(ctx context.Context, actor Actor, in CreateReviewInput) (model.Review, error) {
	in.Body = strings.TrimSpace(in.Body)
	in.Title = strings.TrimSpace(in.Title)
	in.AuthorName = strings.TrimSpace(in.AuthorName)

	switch {
	case strings.TrimSpace(in.ProductID) == "":
		return model.Review{}, badRequest("product_id required")
	case in.Rating < 1 || in.Rating > 5:
		return model.Review{}, badRequest("rating must be between 1 and 5")
	case in.Body == "":
		return model.Review{}, badRequest("body required")
	case utf8.RuneCountInString(in.Title) > 255:
		return model.Review{}, badRequest("title too long")
	case utf8.RuneCountInString(in.AuthorName) > 100:
		return model.Review{}, badRequest("author_name too long")
	}

	key := "review:ip:" + in.ClientIP
	if actor.Authenticated() {
		key = "review:user:" + actor.UserID
	}
	ok, err := u.limiter.Allow(ctx, key)
	if err != nil {
		// Redis障害時は通す
		u.log.Warn("review rate limiter unavailable", zap.String("key", key), zap.Error(err))
	} else if !ok {
		u.metrics.RateLimited("review")
		return model.Review{}, errTooManyReviews
	}

	p, err := u.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return model.Review{}, mapRepoErr(err)
	}
	if !p.IsActive {
		return model.Review{}, errNotFound
	}

	r := model.Review{
		ID:         u.ids.NewID(),
		ProductID:  p.ID,
		AuthorName: in.AuthorName,
		Rating:     in.Rating,
		Title:      in.Title,
		Body:       in.Body,
		IPAddress:  in.ClientIP,
	}
	if actor.Authenticated() {
		uid := actor.UserID
		r.UserID = &uid
	}
	if err := u.reviews.Create(ctx, r); err != nil {
		return model.Review{}, mapRepoErr(err)
	}
	return r, nil
}

func (u *ReviewUsecase) SetApproved(ctx context.Context, actor Actor, id string, approved bool) (model.Review, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Review{}, err
	}
	if err := u.reviews.SetApproved(ctx, id, approved); err != nil {
		return model.Review{}, mapRepoErr(err)
	}
	r, err := u.reviews.FindByID(ctx, id)
	if err != nil {
		return model.Review{}, mapRepoErr(err)
	}
	return r, nil
}

func (u *ReviewUsecase) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return mapRepoErr(u.reviews.Delete(ctx, id))
}

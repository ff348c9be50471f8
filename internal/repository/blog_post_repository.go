package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type BlogPostListQuery struct {
	Page   int
	Limit  int
	Status string
	Tag    string
	Search string
}

type BlogPostRepository interface {
	List(ctx context.Context, q BlogPostListQuery) ([]model.BlogPost, int64, error)
	FindByID(ctx context.Context, id string) (model.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (model.BlogPost, error)
	Create(ctx context.Context, p model.BlogPost) error
	Update(ctx context.Context, p model.BlogPost) error
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type BlogPostGormRepository struct {
	db *gorm.DB
}

func NewBlogPostGormRepository(db *gorm.DB) *BlogPostGormRepository {
	return &BlogPostGormRepository{db: db}
}

var _ repo.BlogPostRepository = (*BlogPostGormRepository)(nil)

func (r *BlogPostGormRepository) List(ctx context.Context, q repo.BlogPostListQuery) ([]model.BlogPost, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.BlogPost{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	// tagsはカンマ区切り
	if t := strings.TrimSpace(q.Tag); t != "" {
		tx = tx.Where("(',' || tags || ',') ILIKE ?", "%,"+escapeLike(t)+",%")
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		tx = tx.Where("title ILIKE ? OR content ILIKE ?", like, like)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.BlogPost{}, 0, err
	}

	var list []model.BlogPost
	if err := tx.
		Order("published_at desc NULLS LAST").Order("created_at desc").
		Limit(q.Limit).
		Offset(pageOffset(q.Page, q.Limit)).
		Find(&list).Error; err != nil {
		return []model.BlogPost{}, 0, err
	}
	return list, total, nil
}

func (r *BlogPostGormRepository) FindByID(ctx context.Context, id string) (model.BlogPost, error) {
	var p model.BlogPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return model.BlogPost{}, mapErr(err)
	}
	return p, nil
}

func (r *BlogPostGormRepository) FindBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	var p model.BlogPost
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return model.BlogPost{}, mapErr(err)
	}
	return p, nil
}

func (r *BlogPostGormRepository) Create(ctx context.Context, p model.BlogPost) error {
	return mapErr(r.db.WithContext(ctx).Create(&p).Error)
}

// 計算済みの列も含めて丸ごと保存
func (r *BlogPostGormRepository) Update(ctx context.Context, p model.BlogPost) error {
	res := r.db.WithContext(ctx).Model(&model.BlogPost{}).Where("id = ?", p.ID).
		Select("*").Omit("id", "created_at", "author_id").
		Updates(&p)
	return affected(res)
}

func (r *BlogPostGormRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.BlogPost{}))
}

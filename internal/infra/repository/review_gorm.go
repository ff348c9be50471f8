package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

var _ repo.ReviewRepository = (*ReviewGormRepository)(nil)

func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) error {
	return mapErr(r.db.WithContext(ctx).Create(&rv).Error)
}

func (r *ReviewGormRepository) FindByID(ctx context.Context, id string) (model.Review, error) {
	var rv model.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rv).Error; err != nil {
		return model.Review{}, mapErr(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) List(ctx context.Context, q repo.ReviewListQuery) ([]model.Review, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Review{})
	if q.ProductID != "" {
		tx = tx.Where("product_id = ?", q.ProductID)
	}
	approved := true
	if q.Approved != nil {
		approved = *q.Approved
	}
	tx = tx.Where("is_approved = ?", approved)

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.Review{}, 0, err
	}

	var list []model.Review
	if err := tx.
		Order("created_at desc").
		Limit(q.Limit).
		Offset(pageOffset(q.Page, q.Limit)).
		Find(&list).Error; err != nil {
		return []model.Review{}, 0, err
	}
	return list, total, nil
}

func (r *ReviewGormRepository) Stats(ctx context.Context, productID string) (repo.ReviewStats, error) {
	var s repo.ReviewStats
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average_rating").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&s).Error
	if err != nil {
		return repo.ReviewStats{}, err
	}
	return s, nil
}

func (r *ReviewGormRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", id).
		Update("is_approved", approved))
}

func (r *ReviewGormRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Review{}))
}

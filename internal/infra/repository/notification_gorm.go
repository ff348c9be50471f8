package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type NotificationGormRepository struct {
	db *gorm.DB
}

func NewNotificationGormRepository(db *gorm.DB) *NotificationGormRepository {
	return &NotificationGormRepository{db: db}
}

var _ repo.NotificationRepository = (*NotificationGormRepository)(nil)

func (r *NotificationGormRepository) Create(ctx context.Context, n model.Notification) error {
	return mapErr(r.db.WithContext(ctx).Create(&n).Error)
}

func (r *NotificationGormRepository) ListByUserID(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var list []model.Notification
	if err := q.Order("created_at desc").Limit(limit).Find(&list).Error; err != nil {
		return []model.Notification{}, err
	}
	return list, nil
}

// 他人の通知は NotFound
func (r *NotificationGormRepository) MarkRead(ctx context.Context, id string, userID string) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true))
}

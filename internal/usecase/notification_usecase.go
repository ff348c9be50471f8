package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type NotificationUsecase struct {
	notifications repo.NotificationRepository
}

func NewNotificationUsecase(notifications repo.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications}
}

func (u *NotificationUsecase) List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]model.Notification, error) {
	if !actor.Authenticated() {
		return nil, errUnauthorized
	}
	if limit < 1 || limit > 100 {
		return nil, badRequest("invalid limit")
	}
	list, err := u.notifications.ListByUserID(ctx, actor.UserID, unreadOnly, limit)
	if err != nil {
		return nil, errDB
	}
	return list, nil
}

// 他人の通知はNotFound
func (u *NotificationUsecase) MarkRead(ctx context.Context, actor Actor, id string) error {
	if !actor.Authenticated() {
		return errUnauthorized
	}
	return mapRepoErr(u.notifications.MarkRead(ctx, id, actor.UserID))
}

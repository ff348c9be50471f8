package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ReturnGormRepository struct {
	db *gorm.DB
}

func NewReturnGormRepository(db *gorm.DB) *ReturnGormRepository {
	return &ReturnGormRepository{db: db}
}

var _ repo.ReturnRepository = (*ReturnGormRepository)(nil)

func (r *ReturnGormRepository) Create(ctx context.Context, rr model.ReturnRequest) error {
	return mapErr(r.db.WithContext(ctx).Create(&rr).Error)
}

func (r *ReturnGormRepository) FindByID(ctx context.Context, id string) (model.ReturnRequest, error) {
	var rr model.ReturnRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rr).Error; err != nil {
		return model.ReturnRequest{}, mapErr(err)
	}
	return rr, nil
}

func (r *ReturnGormRepository) List(ctx context.Context, f repo.ReturnListFilter) ([]model.ReturnRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ReturnRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}

	var list []model.ReturnRequest
	if err := q.
		Order("created_at desc").
		Limit(f.Limit).
		Offset(pageOffset(f.Page, f.Limit)).
		Find(&list).Error; err != nil {
		return []model.ReturnRequest{}, 0, err
	}
	return list, total, nil
}

func (r *ReturnGormRepository) Update(ctx context.Context, rr model.ReturnRequest) error {
	res := r.db.WithContext(ctx).Model(&model.ReturnRequest{}).
		Where("id = ?", rr.ID).
		Updates(map[string]interface{}{
			"status":       rr.Status,
			"admin_notes":  rr.AdminNotes,
			"approved_at":  rr.ApprovedAt,
			"rejected_at":  rr.RejectedAt,
			"picked_up_at": rr.PickedUpAt,
			"received_at":  rr.ReceivedAt,
			"processed_at": rr.ProcessedAt,
			"refunded_at":  rr.RefundedAt,
		})
	return affected(res)
}

func (r *ReturnGormRepository) Delete(ctx context.Context, id string) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ReturnRequest{}))
}

func (r *ReturnGormRepository) ListByOrderID(ctx context.Context, orderID string) ([]model.ReturnRequest, error) {
	var list []model.ReturnRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&list).Error; err != nil {
		return []model.ReturnRequest{}, mapErr(err)
	}
	return list, nil
}

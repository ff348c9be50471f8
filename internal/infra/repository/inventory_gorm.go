package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

var _ repo.InventoryRepository = (*InventoryGormRepository)(nil)

// SELECT ... FOR UPDATE。同じ行を触る他のTxはcommitまで待つ。
func (r *InventoryGormRepository) FindForUpdate(ctx context.Context, productID string, location string) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location = ?", productID, location).
		First(&inv).Error
	if err != nil {
		return model.Inventory{}, mapErr(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) FindByProduct(ctx context.Context, productID string) ([]model.Inventory, error) {
	var list []model.Inventory
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("location asc").
		Find(&list).Error; err != nil {
		return []model.Inventory{}, err
	}
	return list, nil
}

func (r *InventoryGormRepository) List(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Inventory{})
	if f.LowStock != nil {
		q = q.Where("available_quantity <= ?", *f.LowStock)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.Inventory{}, 0, err
	}

	var list []model.Inventory
	if err := q.
		Order("available_quantity asc").Order("product_id asc").
		Offset(pageOffset(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&list).Error; err != nil {
		return []model.Inventory{}, 0, err
	}
	return list, total, nil
}

func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) error {
	return mapErr(r.db.WithContext(ctx).Create(&inv).Error)
}

// 3つの数量は必ず一緒に書く
func (r *InventoryGormRepository) Save(ctx context.Context, inv model.Inventory) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"quantity":           inv.Quantity,
			"reserved_quantity":  inv.ReservedQuantity,
			"available_quantity": inv.AvailableQuantity,
		})
	return affected(res)
}

func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return mapErr(r.db.WithContext(ctx).Create(&adj).Error)
}

func (r *InventoryGormRepository) ListAdjustments(ctx context.Context, productID string, limit int) ([]model.InventoryAdjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []model.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at desc").
		Limit(limit).
		Find(&list).Error; err != nil {
		return []model.InventoryAdjustment{}, err
	}
	return list, nil
}

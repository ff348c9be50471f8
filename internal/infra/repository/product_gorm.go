package repository

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// 検索/カテゴリ/おすすめ/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]repo.ProductWithStock, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if !q.IncludeInactive {
		tx = tx.Where("products.is_active = ?", true)
	}

	// name / description / sku を大文字小文字無視で部分一致
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		tx = tx.Where(
			"products.name ILIKE ? OR products.description ILIKE ? OR products.sku ILIKE ?",
			like, like, like,
		)
	}

	if q.CategorySlug != "" {
		tx = tx.Where("products.category_id IN (?)",
			r.db.Model(&model.Category{}).Select("id").Where("slug = ?", q.CategorySlug))
	}
	if q.Featured != nil {
		tx = tx.Where("products.is_featured = ?", *q.Featured)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("products.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("products.price <= ?", *q.MaxPrice)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []repo.ProductWithStock{}, 0, err
	}

	switch q.Sort {
	case "price_asc":
		tx = tx.Order("products.price asc").Order("products.id asc")
	case "price_desc":
		tx = tx.Order("products.price desc").Order("products.id desc")
	case "popular":
		tx = tx.Order("products.sales_count desc").Order("products.id desc")
	default:
		tx = tx.Order("products.created_at desc").Order("products.id desc")
	}

	var items []repo.ProductWithStock
	err := tx.
		Select("products.*, COALESCE((SELECT SUM(i.available_quantity) FROM inventory i WHERE i.product_id = products.id), 0) AS available_quantity").
		Offset(pageOffset(q.Page, q.Limit)).
		Limit(q.Limit).
		Find(&items).Error
	if err != nil {
		return []repo.ProductWithStock{}, 0, err
	}
	return items, total, nil
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return model.Product{}, mapErr(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return model.Product{}, mapErr(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindBySKU(ctx context.Context, sku string) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error; err != nil {
		return model.Product{}, mapErr(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var list []model.Product
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return []model.Product{}, mapErr(err)
	}
	return list, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, mapErr(err)
	}
	return p, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":             p.Name,
		"slug":             p.Slug,
		"sku":              p.SKU,
		"description":      p.Description,
		"price":            p.Price,
		"compare_at_price": p.CompareAtPrice,
		"category_id":      p.CategoryID,
		"image_url":        p.ImageURL,
		"is_active":        p.IsActive,
		"is_featured":      p.IsFeatured,
	})
	return affected(res)
}

// 論理削除
func (r *ProductGormRepository) SoftDelete(ctx context.Context, ids ...string) (int64, error) {
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Product{})
	return res.RowsAffected, mapErr(res.Error)
}

func (r *ProductGormRepository) SetActive(ctx context.Context, ids []string, active bool) (int64, error) {
	return r.updateMany(ctx, ids, "is_active", active)
}

func (r *ProductGormRepository) SetFeatured(ctx context.Context, ids []string, featured bool) (int64, error) {
	return r.updateMany(ctx, ids, "is_featured", featured)
}

func (r *ProductGormRepository) SetCategory(ctx context.Context, ids []string, categoryID *string) (int64, error) {
	return r.updateMany(ctx, ids, "category_id", categoryID)
}

func (r *ProductGormRepository) UpdatePrice(ctx context.Context, id string, price int64) error {
	return affected(r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("price", price))
}

// 加算はDB側で行う
func (r *ProductGormRepository) IncrementSalesCount(ctx context.Context, id string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", qty))
	return affected(res)
}

func (r *ProductGormRepository) updateMany(ctx context.Context, ids []string, column string, value interface{}) (int64, error) {
	ids = uuidsOnly(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id IN ?", ids).Update(column, value)
	return res.RowsAffected, mapErr(res.Error)
}

// ILIKEのワイルドカードをエスケープ
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

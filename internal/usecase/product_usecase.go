package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/content"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx         repo.TransactionManager
	products   repo.ProductRepository
	categories repo.CategoryRepository
	inventory  repo.InventoryRepository
	rt         Runtime
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	inventory repo.InventoryRepository,
	rt Runtime,
) *ProductUsecase {
	return &ProductUsecase{
		tx:         tx,
		products:   products,
		categories: categories,
		inventory:  inventory,
		rt:         rt,
	}
}

// GET /products の入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Featured *bool
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []repo.ProductWithStock `json:"items"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

type ProductDetail struct {
	model.Product
	AvailableQuantity int64             `json:"available_quantity"`
	Inventory         []model.Inventory `json:"inventory,omitempty"`
}

type ProductInput struct {
	Name            string
	Slug            string
	SKU             string
	Description     string
	Price           int64
	CompareAtPrice  *int64
	CategoryID      *string
	ImageURL        string
	IsActive        bool
	IsFeatured      bool
	InitialQuantity int64
}

func (u *ProductUsecase) List(ctx context.Context, actor Actor, in ListProductsInput) (ProductListOutput, error) {
	if err := validatePaging(in.Page, in.Limit); err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Search) > 100 {
		return ProductListOutput{}, badRequest("search too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, badRequest("min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, badRequest("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, badRequest("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "popular":
	default:
		return ProductListOutput{}, badRequest("invalid sort")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:         in.Page,
		Limit:        in.Limit,
		Search:       strings.TrimSpace(in.Search),
		CategorySlug: strings.TrimSpace(in.Category),
		Featured:     in.Featured,
		MinPrice:     in.MinPrice,
		MaxPrice:     in.MaxPrice,
		Sort:         in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, errDB
	}
	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// UUIDならID、それ以外はslugで探す。非公開は管理者のみ。
func (u *ProductUsecase) Get(ctx context.Context, actor Actor, idOrSlug string) (ProductDetail, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return ProductDetail{}, badRequest("invalid product id")
	}

	var (
		p   model.Product
		err error
	)
	if _, perr := uuid.Parse(idOrSlug); perr == nil {
		p, err = u.products.FindByID(ctx, idOrSlug)
	} else {
		p, err = u.products.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return ProductDetail{}, mapRepoErr(err)
	}
	if !p.IsActive && !actor.IsAdmin() {
		return ProductDetail{}, errNotFound
	}

	invs, err := u.inventory.FindByProduct(ctx, p.ID)
	if err != nil {
		return ProductDetail{}, errDB
	}
	d := ProductDetail{Product: p}
	for _, inv := range invs {
		d.AvailableQuantity += inv.AvailableQuantity
	}
	if actor.IsAdmin() {
		d.Inventory = invs
	}
	return d, nil
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return badRequest("name required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		return badRequest("sku required")
	}
	if in.Price < 0 {
		return badRequest("price must be >= 0")
	}
	if in.CompareAtPrice != nil && *in.CompareAtPrice < 0 {
		return badRequest("compare_at_price must be >= 0")
	}
	if in.InitialQuantity < 0 {
		return badRequest("quantity must be >= 0")
	}
	return nil
}

func productFromInput(in ProductInput) model.Product {
	slug := content.Slugify(in.Slug)
	if slug == "" {
		slug = content.Slugify(in.Name)
	}
	return model.Product{
		Name:           strings.TrimSpace(in.Name),
		Slug:           slug,
		SKU:            strings.TrimSpace(in.SKU),
		Description:    in.Description,
		Price:          in.Price,
		CompareAtPrice: in.CompareAtPrice,
		CategoryID:     in.CategoryID,
		ImageURL:       strings.TrimSpace(in.ImageURL),
		IsActive:       in.IsActive,
		IsFeatured:     in.IsFeatured,
	}
}

// 商品と在庫行を同じトランザクションで作る
func (u *ProductUsecase) Create(ctx context.Context, actor Actor, in ProductInput) (ProductDetail, error) {
	if !actor.IsAdmin() {
		return ProductDetail{}, errForbidden
	}
	if err := validateProductInput(in); err != nil {
		return ProductDetail{}, err
	}

	p := productFromInput(in)
	p.ID = u.rt.IDs.NewID()
	if p.Slug == "" {
		return ProductDetail{}, badRequest("slug required")
	}

	var inv model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if p.CategoryID != nil {
			if _, err := r.Categories().FindByID(ctx, *p.CategoryID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return badRequest("category not found")
				}
				return errDB
			}
		}
		created, err := r.Products().Create(ctx, p)
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "slug or sku already exists")
		}
		if err != nil {
			return errDB
		}
		p = created

		inv = model.Inventory{ID: u.rt.IDs.NewID(), ProductID: p.ID, Location: model.DefaultLocation}
		inv.SetQuantity(in.InitialQuantity)
		if err := r.Inventory().Create(ctx, inv); err != nil {
			return errDB
		}
		if in.InitialQuantity > 0 {
			adj := model.NewAdjustment(u.rt.IDs.NewID(), model.AdjustmentSet, model.Inventory{}, inv)
			adj.ActorUserID = &actor.UserID
			adj.Reason = "initial stock"
			if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
				return errDB
			}
		}
		return nil
	})
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: p, AvailableQuantity: inv.AvailableQuantity, Inventory: []model.Inventory{inv}}, nil
}

func (u *ProductUsecase) Update(ctx context.Context, actor Actor, productID string, in ProductInput) (model.Product, error) {
	if !actor.IsAdmin() {
		return model.Product{}, errForbidden
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}
	current, err := u.products.FindByID(ctx, productID)
	if err != nil {
		return model.Product{}, mapRepoErr(err)
	}

	p := productFromInput(in)
	p.ID = current.ID
	p.SalesCount = current.SalesCount
	p.CreatedAt = current.CreatedAt
	if p.Slug == "" {
		p.Slug = current.Slug
	}
	if p.CategoryID != nil {
		if _, err := u.categories.FindByID(ctx, *p.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.Product{}, badRequest("category not found")
			}
			return model.Product{}, errDB
		}
	}

	err = u.products.Update(ctx, p)
	if errors.Is(err, repo.ErrConflict) {
		return model.Product{}, NewHTTPError(http.StatusConflict, "slug or sku already exists")
	}
	if err != nil {
		return model.Product{}, mapRepoErr(err)
	}
	return p, nil
}

// 論理削除
func (u *ProductUsecase) Delete(ctx context.Context, actor Actor, productID string) error {
	if !actor.IsAdmin() {
		return errForbidden
	}
	n, err := u.products.SoftDelete(ctx, productID)
	if err != nil {
		return errDB
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	list, err := u.categories.List(ctx)
	if err != nil {
		return []model.Category{}, errDB
	}
	return list, nil
}

func (u *ProductUsecase) CreateCategory(ctx context.Context, actor Actor, name, slug string) (model.Category, error) {
	if !actor.IsAdmin() {
		return model.Category{}, errForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, badRequest("name required")
	}
	if slug = content.Slugify(slug); slug == "" {
		slug = content.Slugify(name)
	}
	c, err := u.categories.Create(ctx, model.Category{ID: u.rt.IDs.NewID(), Name: name, Slug: slug})
	if errors.Is(err, repo.ErrConflict) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "slug already exists")
	}
	if err != nil {
		return model.Category{}, errDB
	}
	return c, nil
}

type InventoryResult struct {
	Inventory model.Inventory `json:"inventory"`
	Effects   []Effect        `json:"effects"`
}

// 在庫の絶対値設定。行が無ければ作る。引当はそのまま。
func (u *ProductUsecase) SetInventory(ctx context.Context, actor Actor, productID string, quantity int64, reason string) (InventoryResult, error) {
	if !actor.IsAdmin() {
		return InventoryResult{}, errForbidden
	}
	if quantity < 0 {
		return InventoryResult{}, badRequest("quantity must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return InventoryResult{}, badRequest("reason required")
	}

	var inv model.Inventory
	now := u.rt.Clock.Now()
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		inv, err = setInventoryTx(ctx, r, u.rt.IDs, actor.UserID, productID, quantity, reason)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return InventoryResult{}, err
	}

	u.rt.Metrics.InventoryAdjusted(string(model.AdjustmentSet), 1)
	eff := u.rt.effects().publish(ctx, model.EventInventoryAdjusted, productID, now, map[string]any{
		"product_id":         productID,
		"quantity":           inv.Quantity,
		"reserved_quantity":  inv.ReservedQuantity,
		"available_quantity": inv.AvailableQuantity,
		"reason":             reason,
	}, zap.String("product_id", productID))
	return InventoryResult{Inventory: inv, Effects: []Effect{eff}}, nil
}

// 単品・一括の両方から使う在庫の上書き（監査ログ付き）
func setInventoryTx(ctx context.Context, r repo.TxRepos, ids IDGenerator, actorID, productID string, quantity int64, reason string) (model.Inventory, error) {
	if _, err := r.Products().FindByID(ctx, productID); err != nil {
		return model.Inventory{}, mapRepoErr(err)
	}

	inv, err := r.Inventory().FindForUpdate(ctx, productID, model.DefaultLocation)
	created := false
	if errors.Is(err, repo.ErrNotFound) {
		inv = model.Inventory{ID: ids.NewID(), ProductID: productID, Location: model.DefaultLocation}
		created = true
	} else if err != nil {
		return model.Inventory{}, errDB
	}

	before := inv
	inv.SetQuantity(quantity)
	if created {
		err = r.Inventory().Create(ctx, inv)
	} else {
		err = r.Inventory().Save(ctx, inv)
	}
	if err != nil {
		return model.Inventory{}, errDB
	}

	adj := model.NewAdjustment(ids.NewID(), model.AdjustmentSet, before, inv)
	adj.ActorUserID = &actorID
	adj.Reason = reason
	if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
		return model.Inventory{}, errDB
	}

	//監査ログを作成（在庫更新）
	beforeJSON, _ := json.Marshal(map[string]int64{"quantity": before.Quantity, "reserved_quantity": before.ReservedQuantity})
	afterJSON, _ := json.Marshal(map[string]int64{"quantity": inv.Quantity, "reserved_quantity": inv.ReservedQuantity})
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ID:           ids.NewID(),
		ActorUserID:  actorID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
	}); err != nil {
		return model.Inventory{}, errDB
	}
	return inv, nil
}

type InventoryListOutput struct {
	Items []model.Inventory `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func (u *ProductUsecase) ListInventory(ctx context.Context, actor Actor, lowStock *int64, page, limit int) (InventoryListOutput, error) {
	if !actor.IsAdmin() {
		return InventoryListOutput{}, errForbidden
	}
	if err := validatePaging(page, limit); err != nil {
		return InventoryListOutput{}, err
	}
	items, total, err := u.inventory.List(ctx, repo.InventoryListFilter{LowStock: lowStock, Page: page, Limit: limit})
	if err != nil {
		return InventoryListOutput{}, errDB
	}
	return InventoryListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *ProductUsecase) ListAdjustments(ctx context.Context, actor Actor, productID string, limit int) ([]model.InventoryAdjustment, error) {
	if !actor.IsAdmin() {
		return []model.InventoryAdjustment{}, errForbidden
	}
	list, err := u.inventory.ListAdjustments(ctx, productID, limit)
	if err != nil {
		return []model.InventoryAdjustment{}, errDB
	}
	return list, nil
}

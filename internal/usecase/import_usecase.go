package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/document"
	"storefront/internal/domain/content"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxImportRows = 5000

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors"`
}

type ImportUsecase struct {
	tx repo.TransactionManager
	rt Runtime
}

func NewImportUsecase(tx repo.TransactionManager, rt Runtime) *ImportUsecase {
	return &ImportUsecase{tx: tx, rt: rt}
}

// 検証済みの1行
type importProduct struct {
	product  model.Product
	category string
	quantity *int64
}

// 行ごとにトランザクションを分ける。失敗した行はerrorsに入れて続行。
func (u *ImportUsecase) ImportProducts(ctx context.Context, actor Actor, r io.Reader) (ImportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return ImportResult{}, err
	}
	rows, err := document.ReadProductRows(r)
	if err != nil {
		return ImportResult{}, badRequest(fmt.Sprintf("invalid file: %v", err))
	}
	if len(rows) > maxImportRows {
		return ImportResult{}, badRequest(fmt.Sprintf("too many rows (max %d)", maxImportRows))
	}

	res := ImportResult{Errors: []ImportRowError{}}
	for _, row := range rows {
		ip, err := parseImportRow(row)
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: row.Line, Error: err.Error()})
			continue
		}

		var created bool
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			var err error
			created, err = u.upsert(ctx, r, actor, ip)
			return err
		})
		if err != nil {
			res.Errors = append(res.Errors, ImportRowError{Row: row.Line, Error: importErrorMessage(err)})
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	summary, _ := json.Marshal(res)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ID:           u.rt.IDs.NewID(),
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionImportProducts,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   "import",
			AfterJSON:    string(summary),
		})
	})
	if err != nil {
		u.rt.Log.Warn("import audit log failed", zap.Error(err))
	}

	u.rt.Log.Info("products imported",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("errors", len(res.Errors)),
		zap.String("actor_user_id", actor.UserID))
	return res, nil
}

// skuが既にあれば更新。在庫はquantity列があるときだけ上書き。
func (u *ImportUsecase) upsert(ctx context.Context, r repo.TxRepos, actor Actor, ip importProduct) (bool, error) {
	p := ip.product
	if ip.category != "" {
		catID, err := ensureCategory(ctx, r, u.rt.IDs, ip.category)
		if err != nil {
			return false, err
		}
		p.CategoryID = &catID
	}

	existing, err := r.Products().FindBySKU(ctx, p.SKU)
	created := errors.Is(err, repo.ErrNotFound)
	switch {
	case created:
		p.ID = u.rt.IDs.NewID()
		if _, err := r.Products().Create(ctx, p); err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		p.ID = existing.ID
		p.SalesCount = existing.SalesCount
		p.CompareAtPrice = existing.CompareAtPrice
		p.ImageURL = existing.ImageURL
		p.CreatedAt = existing.CreatedAt
		if ip.category == "" {
			p.CategoryID = existing.CategoryID
		}
		if err := r.Products().Update(ctx, p); err != nil {
			return false, err
		}
	}

	qty := ip.quantity
	if qty == nil && created {
		zero := int64(0)
		qty = &zero
	}
	if qty != nil {
		if _, err := setInventoryTx(ctx, r, u.rt.IDs, actor.UserID, p.ID, *qty, "import"); err != nil {
			return false, err
		}
	}
	return created, nil
}

// 名前からslugを作り、無ければ作成
func ensureCategory(ctx context.Context, r repo.TxRepos, ids IDGenerator, name string) (string, error) {
	slug := content.Slugify(name)
	if slug == "" {
		return "", badRequest("invalid category")
	}
	c, err := r.Categories().FindBySlug(ctx, slug)
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	c, err = r.Categories().Create(ctx, model.Category{ID: ids.NewID(), Name: name, Slug: slug})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func parseImportRow(row document.ProductRow) (importProduct, error) {
	if row.Name == "" {
		return importProduct{}, errors.New("name required")
	}
	if row.SKU == "" {
		return importProduct{}, errors.New("sku required")
	}
	price, err := parseAmount(row.Price)
	if err != nil {
		return importProduct{}, fmt.Errorf("invalid price: %q", row.Price)
	}

	var qty *int64
	if row.Quantity != "" {
		q, err := strconv.ParseInt(row.Quantity, 10, 64)
		if err != nil || q < 0 {
			return importProduct{}, fmt.Errorf("invalid quantity: %q", row.Quantity)
		}
		qty = &q
	}
	active, err := parseFlag(row.IsActive, true)
	if err != nil {
		return importProduct{}, fmt.Errorf("invalid is_active: %q", row.IsActive)
	}
	featured, err := parseFlag(row.IsFeatured, false)
	if err != nil {
		return importProduct{}, fmt.Errorf("invalid is_featured: %q", row.IsFeatured)
	}

	slug := content.Slugify(row.Slug)
	if slug == "" {
		slug = content.Slugify(row.Name)
	}
	if slug == "" {
		return importProduct{}, errors.New("slug could not be derived from name")
	}

	return importProduct{
		product: model.Product{
			Name:        row.Name,
			Slug:        slug,
			SKU:         row.SKU,
			Description: row.Description,
			Price:       price,
			IsActive:    active,
			IsFeatured:  featured,
		},
		category: row.Category,
		quantity: qty,
	}, nil
}

// Excelでは数値が"1200.00"のように来ることがある
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, errors.New("not a non-negative integer")
	}
	return d.IntPart(), nil
}

func parseFlag(s string, def bool) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return def, nil
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, errors.New("invalid flag")
}

func importErrorMessage(err error) string {
	if errors.Is(err, repo.ErrConflict) {
		return "slug or sku already used by another product"
	}
	if he, ok := AsHTTPError(err); ok {
		return he.Message
	}
	return "db error"
}

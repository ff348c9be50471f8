package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBulkProducts = 500

type BulkOperation string

const (
	BulkActivate        BulkOperation = "activate"
	BulkDeactivate      BulkOperation = "deactivate"
	BulkFeature         BulkOperation = "feature"
	BulkUnfeature       BulkOperation = "unfeature"
	BulkDelete          BulkOperation = "delete"
	BulkUpdatePrice     BulkOperation = "update_price"
	BulkUpdateCategory  BulkOperation = "update_category"
	BulkUpdateInventory BulkOperation = "update_inventory"
)

// 価格は mode=set なら amount がそのまま新価格、percent なら増減率(%)
type BulkValue struct {
	Mode       string              `json:"mode"`
	Amount     decimal.NullDecimal `json:"amount"`
	CategoryID *string             `json:"category_id"`
	Quantity   *int64              `json:"quantity"`
}

type BulkInput struct {
	Operation  BulkOperation `json:"operation"`
	ProductIDs []string      `json:"product_ids"`
	Value      BulkValue     `json:"value"`
}

type BulkFailure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

type BulkResult struct {
	Operation BulkOperation `json:"operation"`
	Affected  int64         `json:"affected"`
	Failed    []BulkFailure `json:"failed"`
}

type BulkUsecase struct {
	tx repo.TransactionManager
	rt Runtime
}

func NewBulkUsecase(tx repo.TransactionManager, rt Runtime) *BulkUsecase {
	return &BulkUsecase{tx: tx, rt: rt}
}

// まとめて1トランザクション。存在しないIDはfailedに入れて他だけ適用する。
func (u *BulkUsecase) Apply(ctx context.Context, actor Actor, in BulkInput) (BulkResult, error) {
	if err := requireAdmin(actor); err != nil {
		return BulkResult{}, err
	}
	ids := uniqueIDs(in.ProductIDs)
	if len(ids) == 0 {
		return BulkResult{}, badRequest("product_ids required")
	}
	if len(ids) > maxBulkProducts {
		return BulkResult{}, badRequest("too many product_ids")
	}
	if err := validateBulkValue(in.Operation, in.Value); err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{Operation: in.Operation, Failed: []BulkFailure{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Products().FindByIDs(ctx, ids)
		if err != nil {
			return errDB
		}
		byID := make(map[string]model.Product, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}
		targets := make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				res.Failed = append(res.Failed, BulkFailure{ProductID: id, Error: "product not found"})
				continue
			}
			targets = append(targets, id)
		}
		if len(targets) == 0 {
			return nil
		}

		switch in.Operation {
		case BulkActivate, BulkDeactivate:
			res.Affected, err = r.Products().SetActive(ctx, targets, in.Operation == BulkActivate)
		case BulkFeature, BulkUnfeature:
			res.Affected, err = r.Products().SetFeatured(ctx, targets, in.Operation == BulkFeature)
		case BulkDelete:
			res.Affected, err = r.Products().SoftDelete(ctx, targets...)
		case BulkUpdateCategory:
			if in.Value.CategoryID != nil {
				if _, cerr := r.Categories().FindByID(ctx, *in.Value.CategoryID); cerr != nil {
					return badRequest("category not found")
				}
			}
			res.Affected, err = r.Products().SetCategory(ctx, targets, in.Value.CategoryID)
		case BulkUpdatePrice:
			for _, id := range targets {
				price := NewPrice(byID[id].Price, in.Value)
				if err := r.Products().UpdatePrice(ctx, id, price); err != nil {
					return errDB
				}
				res.Affected++
			}
		case BulkUpdateInventory:
			for _, id := range targets {
				if _, err := setInventoryTx(ctx, r, u.rt.IDs, actor.UserID, id, *in.Value.Quantity, "bulk update"); err != nil {
					return err
				}
				res.Affected++
			}
		}
		if err != nil {
			return errDB
		}

		after, _ := json.Marshal(map[string]any{
			"product_ids": targets,
			"value":       in.Value,
			"affected":    res.Affected,
		})
		return mapRepoErr(r.AuditLogs().Create(ctx, model.AuditLog{
			ID:           u.rt.IDs.NewID(),
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionBulkProducts,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   string(in.Operation),
			AfterJSON:    string(after),
		}))
	})
	if err != nil {
		return BulkResult{}, err
	}

	if in.Operation == BulkUpdateInventory {
		u.rt.Metrics.InventoryAdjusted(string(model.AdjustmentSet), int(res.Affected))
	}
	u.rt.Log.Info("bulk product operation",
		zap.String("operation", string(in.Operation)),
		zap.Int64("affected", res.Affected),
		zap.Int("failed", len(res.Failed)),
		zap.String("actor_user_id", actor.UserID))
	return res, nil
}

// 四捨五入、マイナスにはしない
func NewPrice(current int64, v BulkValue) int64 {
	amount := v.Amount.Decimal
	var next decimal.Decimal
	if v.Mode == "percent" {
		hundred := decimal.NewFromInt(100)
		next = decimal.NewFromInt(current).Mul(hundred.Add(amount)).Div(hundred)
	} else {
		next = amount
	}
	next = next.Round(0)
	if next.IsNegative() {
		return 0
	}
	return next.IntPart()
}

func validateBulkValue(op BulkOperation, v BulkValue) error {
	switch op {
	case BulkActivate, BulkDeactivate, BulkFeature, BulkUnfeature, BulkDelete, BulkUpdateCategory:
		return nil
	case BulkUpdatePrice:
		if v.Mode != "set" && v.Mode != "percent" {
			return badRequest("value.mode must be set or percent")
		}
		if !v.Amount.Valid {
			return badRequest("value.amount required")
		}
		if v.Mode == "set" && v.Amount.Decimal.IsNegative() {
			return badRequest("price must be >= 0")
		}
		return nil
	case BulkUpdateInventory:
		if v.Quantity == nil || *v.Quantity < 0 {
			return badRequest("value.quantity must be >= 0")
		}
		return nil
	}
	return badRequest("unknown operation")
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

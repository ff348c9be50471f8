package model

import (
	"errors"
	"fmt"
	"time"
)

const DefaultLocation = "default"

var ErrInsufficientStock = errors.New("insufficient stock")

// 商品×ロケーションごとの在庫。
// available_quantity = max(0, quantity - reserved_quantity) を書き込みのたびに保つ。
type Inventory struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID         string    `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_location" json:"product_id"`
	Location          string    `gorm:"type:varchar(100);not null;default:'default';uniqueIndex:idx_inventory_product_location" json:"location"`
	Quantity          int64     `gorm:"not null;default:0" json:"quantity"`
	ReservedQuantity  int64     `gorm:"not null;default:0" json:"reserved_quantity"`
	AvailableQuantity int64     `gorm:"not null;default:0;index" json:"available_quantity"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// 注文確定前の引当。販売可能数が足りなければエラー。
func (i *Inventory) Reserve(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be > 0")
	}
	if i.AvailableQuantity < qty {
		return ErrInsufficientStock
	}
	i.ReservedQuantity += qty
	i.recompute()
	return nil
}

// 引当の解除（キャンセル）。quantityは変えない。
func (i *Inventory) Release(qty int64) {
	i.ReservedQuantity = floorZero(i.ReservedQuantity - qty)
	i.recompute()
}

// 出荷。実在庫と引当を同じ数だけ減らす。実在庫が足りなければ何も変えない。
func (i *Inventory) Ship(qty int64) error {
	if i.Quantity < qty {
		return ErrInsufficientStock
	}
	i.Quantity -= qty
	i.ReservedQuantity = floorZero(i.ReservedQuantity - qty)
	i.recompute()
	return nil
}

// 実在庫を絶対値で設定。引当はそのまま。
func (i *Inventory) SetQuantity(qty int64) {
	i.Quantity = floorZero(qty)
	i.recompute()
}

// 入荷・返品受入
func (i *Inventory) Restock(qty int64) {
	i.Quantity += qty
	i.recompute()
}

func (i *Inventory) recompute() {
	i.AvailableQuantity = floorZero(i.Quantity - i.ReservedQuantity)
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

type InventoryAdjustmentKind string

const (
	AdjustmentReserve InventoryAdjustmentKind = "reserve"
	AdjustmentRelease InventoryAdjustmentKind = "release"
	AdjustmentShip    InventoryAdjustmentKind = "ship"
	AdjustmentSet     InventoryAdjustmentKind = "set"
	AdjustmentRestock InventoryAdjustmentKind = "restock"
)

// 在庫調整の履歴
type InventoryAdjustment struct {
	ID            string                  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID     string                  `gorm:"type:uuid;not null;index" json:"product_id"`
	Location      string                  `gorm:"type:varchar(100);not null" json:"location"`
	ActorUserID   *string                 `gorm:"type:uuid;index" json:"actor_user_id"`
	OrderID       *string                 `gorm:"type:uuid;index" json:"order_id"`
	Kind          InventoryAdjustmentKind `gorm:"type:varchar(20);not null" json:"kind"`
	DeltaQuantity int64                   `gorm:"not null" json:"delta_quantity"`
	DeltaReserved int64                   `gorm:"not null" json:"delta_reserved"`
	Reason        string                  `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt     time.Time               `gorm:"not null;autoCreateTime" json:"created_at"`
}

// before/afterから差分の履歴を作る
func NewAdjustment(id string, kind InventoryAdjustmentKind, before, after Inventory) InventoryAdjustment {
	return InventoryAdjustment{
		ID:            id,
		ProductID:     after.ProductID,
		Location:      after.Location,
		Kind:          kind,
		DeltaQuantity: after.Quantity - before.Quantity,
		DeltaReserved: after.ReservedQuantity - before.ReservedQuantity,
	}
}

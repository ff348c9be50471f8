package repository

import "context"

// 1トランザクションで扱うrepository。
// 在庫と注文はFindForUpdate系で行ロックしてから書き換える
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Inventory() InventoryRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Returns() ReturnRepository
	AuditLogs() AuditLogRepository
}

// fnがnilを返したらcommit、それ以外はrollback
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

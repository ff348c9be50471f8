package model

// AutoMigrate対象のモデル一覧
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Address{},
		&Category{},
		&Product{},
		&Inventory{},
		&InventoryAdjustment{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&ReturnRequest{},
		&Notification{},
		&Review{},
		&BlogPost{},
		&AuditLog{},
	}
}

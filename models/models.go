package models

// AllModels returns every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&MenuItem{},
		&Review{},
		&Order{},
		&OrderItem{},
		&StatusHistoryEntry{},
		&InventoryItem{},
		&StockMovement{},
		&InventoryAlert{},
	}
}

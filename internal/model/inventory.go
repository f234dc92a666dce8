package model

import "time"

// InventoryItem represents a row of the `inventory` table.
type InventoryItem struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryPatch lists the fields a partial update may change.
type InventoryPatch struct {
	Name     *string
	Quantity *int
	Price    *float64
}

func (p InventoryPatch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.Price == nil
}

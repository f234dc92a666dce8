package model

import "time"

// ServiceTicket is a repair job opened by a customer.  Mechanics and
// InventoryItems are loaded from the association tables and are always
// non-nil, sorted by id.
type ServiceTicket struct {
	ID             uint64          `json:"id"`
	CustomerID     uint64          `json:"customer_id"`
	Description    string          `json:"description"`
	Date           time.Time       `json:"date"`
	Mechanics      []Mechanic      `json:"mechanics"`
	InventoryItems []InventoryItem `json:"inventory_items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TicketPatch lists the fields a partial update may change.  The owning
// customer is fixed at creation and cannot be patched.
type TicketPatch struct {
	Description *string
	Date        *time.Time
}

func (p TicketPatch) Empty() bool {
	return p.Description == nil && p.Date == nil
}

// TicketEdit is a bulk change of a ticket's associations.  Additions are
// applied before removals; ids that do not resolve are skipped.
type TicketEdit struct {
	AddMechanicIDs    []uint64
	RemoveMechanicIDs []uint64
	AddItemIDs        []uint64
	RemoveItemIDs     []uint64
}

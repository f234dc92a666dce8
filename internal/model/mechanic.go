package model

import "time"

// Mechanic represents a row of the `mechanics` table.
type Mechanic struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Salary    float64   `json:"salary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MechanicPatch lists the fields a partial update may change.
type MechanicPatch struct {
	Name    *string
	Address *string
	Salary  *float64
}

func (p MechanicPatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.Salary == nil
}

// MechanicTicketCount is the result of the busiest-mechanic aggregate.
type MechanicTicketCount struct {
	Mechanic    Mechanic `json:"mechanic"`
	TicketCount int64    `json:"ticket_count"`
}

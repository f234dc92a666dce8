// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// TicketEventsQueue is the durable queue ticket events are published to.
const TicketEventsQueue = "ticket.events"

// Ticket event types.
const (
	TicketCreated          = "ticket.created"
	TicketUpdated          = "ticket.updated"
	TicketDeleted          = "ticket.deleted"
	TicketMechanicsChanged = "ticket.mechanics_changed"
	TicketItemsChanged     = "ticket.items_changed"
)

// TicketEvent is published after a ticket change has been committed.  It
// carries the ticket's association state at that point so downstream
// consumers need not query the primary database.
type TicketEvent struct {
	Type        string   `json:"type"`
	TicketID    uint64   `json:"ticket_id"`
	CustomerID  uint64   `json:"customer_id"`
	MechanicIDs []uint64 `json:"mechanic_ids"`
	ItemIDs     []uint64 `json:"item_ids"`
	OccurredAt  string   `json:"occurred_at"`
}

// NewTicketEvent stamps an event of the given type with the current time in
// RFC 3339.
func NewTicketEvent(typ string, ticketID, customerID uint64, mechanicIDs, itemIDs []uint64) TicketEvent {
	if mechanicIDs == nil {
		mechanicIDs = []uint64{}
	}
	if itemIDs == nil {
		itemIDs = []uint64{}
	}
	return TicketEvent{
		Type:        typ,
		TicketID:    ticketID,
		CustomerID:  customerID,
		MechanicIDs: mechanicIDs,
		ItemIDs:     itemIDs,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

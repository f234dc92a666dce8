package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/queue"
	"github.com/iliyamo/mechanic-shop/internal/repository"
)

// publishTimeout bounds how long a committed request waits on the broker.
const publishTimeout = 3 * time.Second

// TicketService owns every mutation of a service ticket and its mechanic
// and inventory associations.  Each method runs in one transaction; events
// are published only after that transaction commits.
type TicketService struct {
	db        *sql.DB
	tickets   *repository.TicketRepo
	customers *repository.CustomerRepo
	mechanics *repository.MechanicRepo
	items     *repository.InventoryRepo
	events    EventPublisher
	log       *slog.Logger
}

// NewTicketService wires the relationship manager.  A nil publisher means
// events are dropped.
func NewTicketService(
	tickets *repository.TicketRepo,
	customers *repository.CustomerRepo,
	mechanics *repository.MechanicRepo,
	items *repository.InventoryRepo,
	events EventPublisher,
	log *slog.Logger,
) *TicketService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &TicketService{
		db:        tickets.DB(),
		tickets:   tickets,
		customers: customers,
		mechanics: mechanics,
		items:     items,
		events:    events,
		log:       log.With("component", "ticket_service"),
	}
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *TicketService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// requireTicket returns ErrTicketNotFound unless the ticket exists in tx.
func (s *TicketService) requireTicket(ctx context.Context, tx *sql.Tx, id uint64) error {
	ok, err := s.tickets.ExistsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrTicketNotFound
	}
	return nil
}

// Create opens a ticket for customerID.  The customer must still exist; a
// token outliving its customer gets ErrCustomerNotFound.
func (s *TicketService) Create(ctx context.Context, customerID uint64, description string, date time.Time) (model.ServiceTicket, error) {
	t := model.ServiceTicket{CustomerID: customerID, Description: description, Date: date}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.customers.ExistsTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrCustomerNotFound
		}
		return s.tickets.CreateTx(ctx, tx, &t)
	})
	if err != nil {
		return model.ServiceTicket{}, err
	}
	s.publish(ctx, queue.TicketCreated, t)
	return t, nil
}

// Update applies a partial change to description and date.
func (s *TicketService) Update(ctx context.Context, id uint64, patch model.TicketPatch) (model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.tickets.UpdateTx(ctx, tx, id, patch); err != nil {
			return err
		}
		var err error
		t, err = s.tickets.GetByIDTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.ServiceTicket{}, err
	}
	if !patch.Empty() {
		s.publish(ctx, queue.TicketUpdated, t)
	}
	return t, nil
}

// Delete removes a ticket and its association rows.
func (s *TicketService) Delete(ctx context.Context, id uint64) error {
	var t model.ServiceTicket
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if t, err = s.tickets.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		return s.tickets.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.TicketDeleted, t)
	return nil
}

// AssignMechanic links a mechanic to a ticket.  Both must exist; assigning
// an already-assigned mechanic is a no-op.
func (s *TicketService) AssignMechanic(ctx context.Context, ticketID, mechanicID uint64) (model.ServiceTicket, error) {
	return s.changeLink(ctx, ticketID, queue.TicketMechanicsChanged, func(tx *sql.Tx) (bool, error) {
		if _, err := s.mechanics.GetByIDTx(ctx, tx, mechanicID); err != nil {
			return false, err
		}
		return s.tickets.AddMechanicTx(ctx, tx, ticketID, mechanicID)
	})
}

// RemoveMechanic unlinks a mechanic.  Both must exist; removing a mechanic
// that is not assigned is a no-op.
func (s *TicketService) RemoveMechanic(ctx context.Context, ticketID, mechanicID uint64) (model.ServiceTicket, error) {
	return s.changeLink(ctx, ticketID, queue.TicketMechanicsChanged, func(tx *sql.Tx) (bool, error) {
		if _, err := s.mechanics.GetByIDTx(ctx, tx, mechanicID); err != nil {
			return false, err
		}
		return s.tickets.RemoveMechanicTx(ctx, tx, ticketID, mechanicID)
	})
}

// AttachItem links an inventory item to a ticket with the same rules as
// AssignMechanic.
func (s *TicketService) AttachItem(ctx context.Context, ticketID, itemID uint64) (model.ServiceTicket, error) {
	return s.changeLink(ctx, ticketID, queue.TicketItemsChanged, func(tx *sql.Tx) (bool, error) {
		if _, err := s.items.GetByIDTx(ctx, tx, itemID); err != nil {
			return false, err
		}
		return s.tickets.AddItemTx(ctx, tx, ticketID, itemID)
	})
}

// DetachItem unlinks an inventory item with the same rules as
// RemoveMechanic.
func (s *TicketService) DetachItem(ctx context.Context, ticketID, itemID uint64) (model.ServiceTicket, error) {
	return s.changeLink(ctx, ticketID, queue.TicketItemsChanged, func(tx *sql.Tx) (bool, error) {
		if _, err := s.items.GetByIDTx(ctx, tx, itemID); err != nil {
			return false, err
		}
		return s.tickets.RemoveItemTx(ctx, tx, ticketID, itemID)
	})
}

// changeLink checks the ticket, applies one association change and returns
// the ticket as seen after it.  An event is published only if a row moved.
func (s *TicketService) changeLink(ctx context.Context, ticketID uint64, event string, apply func(tx *sql.Tx) (bool, error)) (model.ServiceTicket, error) {
	var (
		t       model.ServiceTicket
		changed bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTicket(ctx, tx, ticketID); err != nil {
			return err
		}
		var err error
		if changed, err = apply(tx); err != nil {
			return err
		}
		t, err = s.tickets.GetByIDTx(ctx, tx, ticketID)
		return err
	})
	if err != nil {
		return model.ServiceTicket{}, err
	}
	if changed {
		s.publish(ctx, event, t)
	}
	return t, nil
}

// BulkEdit applies a batch of association changes atomically.  Ids that
// do not resolve to an existing mechanic or item are skipped rather than
// failing the batch.  Additions run before removals, so an id present in
// both lists ends up unassigned.
func (s *TicketService) BulkEdit(ctx context.Context, ticketID uint64, edit model.TicketEdit) (model.ServiceTicket, error) {
	var (
		t                      model.ServiceTicket
		mechsMoved, itemsMoved bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTicket(ctx, tx, ticketID); err != nil {
			return err
		}
		var err error
		if mechsMoved, err = s.applyEdit(ctx, tx, ticketID, edit.AddMechanicIDs, edit.RemoveMechanicIDs,
			s.mechanics.ExistingIDsTx, s.tickets.AddMechanicTx, s.tickets.RemoveMechanicTx); err != nil {
			return err
		}
		if itemsMoved, err = s.applyEdit(ctx, tx, ticketID, edit.AddItemIDs, edit.RemoveItemIDs,
			s.items.ExistingIDsTx, s.tickets.AddItemTx, s.tickets.RemoveItemTx); err != nil {
			return err
		}
		t, err = s.tickets.GetByIDTx(ctx, tx, ticketID)
		return err
	})
	if err != nil {
		return model.ServiceTicket{}, err
	}
	if mechsMoved {
		s.publish(ctx, queue.TicketMechanicsChanged, t)
	}
	if itemsMoved {
		s.publish(ctx, queue.TicketItemsChanged, t)
	}
	return t, nil
}

type (
	resolveFunc func(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error)
	linkFunc    func(ctx context.Context, tx *sql.Tx, ticketID, otherID uint64) (bool, error)
)

func (s *TicketService) applyEdit(ctx context.Context, tx *sql.Tx, ticketID uint64, add, remove []uint64,
	resolve resolveFunc, link, unlink linkFunc) (bool, error) {
	moved := false
	for _, step := range []struct {
		ids []uint64
		fn  linkFunc
	}{{add, link}, {remove, unlink}} {
		ids, err := resolve(ctx, tx, step.ids)
		if err != nil {
			return false, err
		}
		if skipped := len(step.ids) - len(ids); skipped > 0 {
			s.log.Debug("skipping unresolved ids", "ticket_id", ticketID, "requested", len(step.ids), "resolved", len(ids))
		}
		for _, id := range ids {
			ok, err := step.fn(ctx, tx, ticketID, id)
			if err != nil {
				return false, err
			}
			moved = moved || ok
		}
	}
	return moved, nil
}

// publish sends a best-effort event for t.  Failures are logged; the change
// is already committed and stays so.
func (s *TicketService) publish(ctx context.Context, typ string, t model.ServiceTicket) {
	mids := make([]uint64, 0, len(t.Mechanics))
	for _, m := range t.Mechanics {
		mids = append(mids, m.ID)
	}
	iids := make([]uint64, 0, len(t.InventoryItems))
	for _, it := range t.InventoryItems {
		iids = append(iids, it.ID)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, queue.NewTicketEvent(typ, t.ID, t.CustomerID, mids, iids)); err != nil {
		s.log.Warn("ticket event not published", "type", typ, "ticket_id", t.ID, "error", err)
	}
}

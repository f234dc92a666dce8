package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// TicketRepo persists service tickets and their two association tables:
// service_mechanics (ticket <-> mechanic) and inventory_tickets
// (ticket <-> inventory item).  Mutating methods take the caller's
// transaction; the ticket service owns the transaction boundaries.
type TicketRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewTicketRepo returns a TicketRepo.  dialect picks the idempotent insert
// syntax for the association tables.
func NewTicketRepo(db *sql.DB, dialect Dialect) *TicketRepo {
	return &TicketRepo{db: db, dialect: dialect}
}

// DB exposes the underlying handle so callers can begin transactions.
func (r *TicketRepo) DB() *sql.DB { return r.db }

const ticketColumns = `id, customer_id, description, date, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := row.Scan(&t.ID, &t.CustomerID, &t.Description, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	t.Date = t.Date.UTC()
	return t, err
}

// CreateTx inserts t inside tx and fills in its generated id and timestamps.
// A zero Date defaults to the current time.  The caller must have verified
// that the customer exists.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.ServiceTicket) error {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO service_tickets (customer_id, description, date) VALUES (?, ?, ?)",
		t.CustomerID, t.Description, t.Date.UTC().Truncate(time.Second))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.get(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*t = created
	return nil
}

// GetByID loads a ticket with its mechanics and items.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.ServiceTicket, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID seen from inside tx, so it observes uncommitted edits.
func (r *TicketRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ServiceTicket, error) {
	return r.get(ctx, tx, id)
}

// ExistsTx reports whether the ticket exists.
func (r *TicketRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return exists(ctx, tx, "service_tickets", id)
}

func (r *TicketRepo) get(ctx context.Context, q querier, id uint64) (model.ServiceTicket, error) {
	t, err := scanTicket(q.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM service_tickets WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ServiceTicket{}, ErrTicketNotFound
	}
	if err != nil {
		return model.ServiceTicket{}, err
	}
	tickets := []model.ServiceTicket{t}
	if err := r.loadRelations(ctx, q, tickets); err != nil {
		return model.ServiceTicket{}, err
	}
	return tickets[0], nil
}

// List returns one page of all tickets ordered by id, plus the total count.
func (r *TicketRepo) List(ctx context.Context, p model.Page) ([]model.ServiceTicket, int64, error) {
	total, err := countRows(ctx, r.db, "SELECT COUNT(*) FROM service_tickets")
	if err != nil {
		return nil, 0, err
	}
	out, err := r.query(ctx,
		"SELECT "+ticketColumns+" FROM service_tickets ORDER BY id LIMIT ? OFFSET ?", p.Size, p.Offset())
	return out, total, err
}

// ListByCustomer returns every ticket owned by customerID.
func (r *TicketRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.ServiceTicket, error) {
	return r.query(ctx,
		"SELECT "+ticketColumns+" FROM service_tickets WHERE customer_id = ? ORDER BY id", customerID)
}

func (r *TicketRepo) query(ctx context.Context, q string, args ...any) ([]model.ServiceTicket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.ServiceTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before loading relations: a single-connection pool (SQLite)
	// cannot serve a second query while these rows are open.
	rows.Close()
	if err := r.loadRelations(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadRelations fills Mechanics and InventoryItems for every ticket in ts
// using one query per association table.
func (r *TicketRepo) loadRelations(ctx context.Context, q querier, ts []model.ServiceTicket) error {
	index := make(map[uint64]int, len(ts))
	ids := make([]uint64, 0, len(ts))
	for i := range ts {
		ts[i].Mechanics = []model.Mechanic{}
		ts[i].InventoryItems = []model.InventoryItem{}
		index[ts[i].ID] = i
		ids = append(ids, ts[i].ID)
	}
	if len(ids) == 0 {
		return nil
	}
	in := placeholders(len(ids))

	rows, err := q.QueryContext(ctx, `SELECT sm.ticket_id, m.id, m.name, m.address, m.salary, m.created_at, m.updated_at
		FROM service_mechanics sm
		JOIN mechanics m ON m.id = sm.mechanic_id
		WHERE sm.ticket_id IN (`+in+`)
		ORDER BY sm.ticket_id, m.id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var tid uint64
		var m model.Mechanic
		if err := rows.Scan(&tid, &m.ID, &m.Name, &m.Address, &m.Salary, &m.CreatedAt, &m.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		i := index[tid]
		ts[i].Mechanics = append(ts[i].Mechanics, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `SELECT it.ticket_id, i.id, i.name, i.quantity, i.price, i.created_at, i.updated_at
		FROM inventory_tickets it
		JOIN inventory i ON i.id = it.item_id
		WHERE it.ticket_id IN (`+in+`)
		ORDER BY it.ticket_id, i.id`, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tid uint64
		var it model.InventoryItem
		if err := rows.Scan(&tid, &it.ID, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return err
		}
		i := index[tid]
		ts[i].InventoryItems = append(ts[i].InventoryItems, it)
	}
	return rows.Err()
}

// UpdateTx applies the non-nil fields of patch.  The owning customer never
// changes.
func (r *TicketRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, patch model.TicketPatch) error {
	ok, err := r.ExistsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTicketNotFound
	}
	var set setClause
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.Date != nil {
		set.add("date", patch.Date.UTC().Truncate(time.Second))
	}
	if set.empty() {
		return nil
	}
	_, err = tx.ExecContext(ctx, "UPDATE service_tickets SET "+set.sql()+" WHERE id = ?", append(set.args, id)...)
	return err
}

// DeleteTx removes a ticket and its association rows.  Mechanics and
// inventory items are left alone.
func (r *TicketRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM service_mechanics WHERE ticket_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM inventory_tickets WHERE ticket_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM service_tickets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// AddMechanicTx links a mechanic to a ticket.  The insert is a no-op when the
// pair is already linked, so concurrent calls cannot create duplicates.  It
// reports whether a new row was written.
func (r *TicketRepo) AddMechanicTx(ctx context.Context, tx *sql.Tx, ticketID, mechanicID uint64) (bool, error) {
	return r.link(ctx, tx, "service_mechanics", "mechanic_id", ticketID, mechanicID)
}

// RemoveMechanicTx unlinks a mechanic and reports whether a row was deleted.
func (r *TicketRepo) RemoveMechanicTx(ctx context.Context, tx *sql.Tx, ticketID, mechanicID uint64) (bool, error) {
	return r.unlink(ctx, tx, "service_mechanics", "mechanic_id", ticketID, mechanicID)
}

// AddItemTx attaches an inventory item; idempotent like AddMechanicTx.
func (r *TicketRepo) AddItemTx(ctx context.Context, tx *sql.Tx, ticketID, itemID uint64) (bool, error) {
	return r.link(ctx, tx, "inventory_tickets", "item_id", ticketID, itemID)
}

// RemoveItemTx detaches an inventory item.
func (r *TicketRepo) RemoveItemTx(ctx context.Context, tx *sql.Tx, ticketID, itemID uint64) (bool, error) {
	return r.unlink(ctx, tx, "inventory_tickets", "item_id", ticketID, itemID)
}

func (r *TicketRepo) link(ctx context.Context, tx *sql.Tx, table, col string, ticketID, otherID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, r.dialect.insertIgnore(table, "ticket_id", col), ticketID, otherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TicketRepo) unlink(ctx context.Context, tx *sql.Tx, table, col string, ticketID, otherID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE ticket_id = ? AND "+col+" = ?", ticketID, otherID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

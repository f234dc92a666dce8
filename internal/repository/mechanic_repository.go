package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// MechanicRepo provides CRUD operations for mechanics and the busiest
// mechanic aggregate.
type MechanicRepo struct {
	db *sql.DB
}

func NewMechanicRepo(db *sql.DB) *MechanicRepo { return &MechanicRepo{db: db} }

const mechanicColumns = `id, name, address, salary, created_at, updated_at`

func scanMechanic(row interface{ Scan(...any) error }) (model.Mechanic, error) {
	var m model.Mechanic
	err := row.Scan(&m.ID, &m.Name, &m.Address, &m.Salary, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts m; a duplicate name yields ErrMechanicNameExists.
func (r *MechanicRepo) Create(ctx context.Context, m *model.Mechanic) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO mechanics (name, address, salary) VALUES (?, ?, ?)", m.Name, m.Address, m.Salary)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMechanicNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.get(ctx, r.db, uint64(id))
	if err != nil {
		return err
	}
	*m = created
	return nil
}

func (r *MechanicRepo) GetByID(ctx context.Context, id uint64) (model.Mechanic, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a caller's transaction.
func (r *MechanicRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Mechanic, error) {
	return r.get(ctx, tx, id)
}

func (r *MechanicRepo) get(ctx context.Context, q querier, id uint64) (model.Mechanic, error) {
	m, err := scanMechanic(q.QueryRowContext(ctx,
		"SELECT "+mechanicColumns+" FROM mechanics WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mechanic{}, ErrMechanicNotFound
	}
	return m, err
}

// GetByName looks a mechanic up by exact name.
func (r *MechanicRepo) GetByName(ctx context.Context, name string) (model.Mechanic, error) {
	m, err := scanMechanic(r.db.QueryRowContext(ctx,
		"SELECT "+mechanicColumns+" FROM mechanics WHERE name = ? LIMIT 1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mechanic{}, ErrMechanicNotFound
	}
	return m, err
}

// ExistingIDsTx filters ids down to mechanics that exist.
func (r *MechanicRepo) ExistingIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
	return filterExisting(ctx, tx, "mechanics", ids)
}

func (r *MechanicRepo) List(ctx context.Context, p model.Page) ([]model.Mechanic, int64, error) {
	total, err := countRows(ctx, r.db, "SELECT COUNT(*) FROM mechanics")
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+mechanicColumns+" FROM mechanics ORDER BY id LIMIT ? OFFSET ?", p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Mechanic{}
	for rows.Next() {
		m, err := scanMechanic(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Update applies the non-nil fields of patch.  Renaming onto a name that is
// already taken yields ErrMechanicNameExists.
func (r *MechanicRepo) Update(ctx context.Context, id uint64, patch model.MechanicPatch) (model.Mechanic, error) {
	var set setClause
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Address != nil {
		set.add("address", *patch.Address)
	}
	if patch.Salary != nil {
		set.add("salary", *patch.Salary)
	}
	if set.empty() {
		return r.get(ctx, r.db, id)
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE mechanics SET "+set.sql()+" WHERE id = ?", append(set.args, id)...); err != nil {
		if isUniqueViolation(err) {
			return model.Mechanic{}, ErrMechanicNameExists
		}
		return model.Mechanic{}, err
	}
	return r.get(ctx, r.db, id)
}

// Delete removes a mechanic and its ticket assignments; the tickets stay.
func (r *MechanicRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM service_mechanics WHERE mechanic_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM mechanics WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMechanicNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MostTickets returns the mechanic assigned to the most tickets.  Ties go to
// the lowest id.  Mechanics with no assignments never qualify, so an empty
// association table yields ErrMechanicNotFound.
func (r *MechanicRepo) MostTickets(ctx context.Context) (model.MechanicTicketCount, error) {
	const q = `SELECT m.id, m.name, m.address, m.salary, m.created_at, m.updated_at,
	                  COUNT(sm.ticket_id) AS ticket_count
	           FROM mechanics m
	           JOIN service_mechanics sm ON sm.mechanic_id = m.id
	           GROUP BY m.id, m.name, m.address, m.salary, m.created_at, m.updated_at
	           ORDER BY ticket_count DESC, m.id ASC
	           LIMIT 1`
	var out model.MechanicTicketCount
	m := &out.Mechanic
	err := r.db.QueryRowContext(ctx, q).Scan(
		&m.ID, &m.Name, &m.Address, &m.Salary, &m.CreatedAt, &m.UpdatedAt, &out.TicketCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MechanicTicketCount{}, ErrMechanicNotFound
	}
	return out, err
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// CustomerRepo provides CRUD operations for customers.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, name, email, address, phone, password_hash, created_at, updated_at`

// NormalizeEmail trims and lower-cases an address; every lookup and write
// goes through it so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanCustomer(row interface{ Scan(...any) error }) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.Phone, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts c and fills in its generated id and timestamps.  A taken
// email yields ErrEmailExists.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	c.Email = NormalizeEmail(c.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO customers (name, email, address, phone, password_hash) VALUES (?, ?, ?, ?, ?)",
		c.Name, c.Email, c.Address, c.Phone, c.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
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
	*c = created
	return nil
}

// GetByID fetches a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	return r.get(ctx, r.db, id)
}

// ExistsTx reports whether a customer row exists, seen from inside tx.
func (r *CustomerRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	return exists(ctx, tx, "customers", id)
}

func (r *CustomerRepo) get(ctx context.Context, q querier, id uint64) (model.Customer, error) {
	c, err := scanCustomer(q.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrCustomerNotFound
	}
	return c, err
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (model.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE email = ? LIMIT 1", NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrCustomerNotFound
	}
	return c, err
}

// List returns one page of customers ordered by id, plus the total count.
func (r *CustomerRepo) List(ctx context.Context, p model.Page) ([]model.Customer, int64, error) {
	total, err := countRows(ctx, r.db, "SELECT COUNT(*) FROM customers")
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+customerColumns+" FROM customers ORDER BY id LIMIT ? OFFSET ?", p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update applies the non-nil fields of patch and returns the stored row.
func (r *CustomerRepo) Update(ctx context.Context, id uint64, patch model.CustomerPatch) (model.Customer, error) {
	var set setClause
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Email != nil {
		set.add("email", NormalizeEmail(*patch.Email))
	}
	if patch.Address != nil {
		set.add("address", *patch.Address)
	}
	if patch.Phone != nil {
		set.add("phone", *patch.Phone)
	}
	if patch.PasswordHash != nil {
		set.add("password_hash", *patch.PasswordHash)
	}
	if set.empty() {
		return r.get(ctx, r.db, id)
	}

	// MySQL reports zero affected rows when values are unchanged, so absence
	// is decided by the read-back rather than RowsAffected.
	_, err := r.db.ExecContext(ctx,
		"UPDATE customers SET "+set.sql()+" WHERE id = ?", append(set.args, id)...)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Customer{}, ErrEmailExists
		}
		return model.Customer{}, err
	}
	return r.get(ctx, r.db, id)
}

// Delete removes a customer together with its tickets and their association
// rows in a single transaction.  Mechanics and inventory items are untouched.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
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

	ok, err := exists(ctx, tx, "customers", id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCustomerNotFound
	}

	const owned = `SELECT id FROM service_tickets WHERE customer_id = ?`
	steps := []struct {
		what, query string
	}{
		{"mechanic assignments", "DELETE FROM service_mechanics WHERE ticket_id IN (" + owned + ")"},
		{"inventory attachments", "DELETE FROM inventory_tickets WHERE ticket_id IN (" + owned + ")"},
		{"tickets", "DELETE FROM service_tickets WHERE customer_id = ?"},
		{"customer", "DELETE FROM customers WHERE id = ?"},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.query, id); err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mechanic-shop/internal/model"
)

// InventoryRepo provides CRUD operations for inventory items.
type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const inventoryColumns = `id, name, quantity, price, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (model.InventoryItem, error) {
	var it model.InventoryItem
	err := row.Scan(&it.ID, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *InventoryRepo) Create(ctx context.Context, it *model.InventoryItem) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO inventory (name, quantity, price) VALUES (?, ?, ?)", it.Name, it.Quantity, it.Price)
	if err != nil {
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
	*it = created
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id uint64) (model.InventoryItem, error) {
	return r.get(ctx, r.db, id)
}

func (r *InventoryRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.InventoryItem, error) {
	return r.get(ctx, tx, id)
}

func (r *InventoryRepo) get(ctx context.Context, q querier, id uint64) (model.InventoryItem, error) {
	it, err := scanItem(q.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.InventoryItem{}, ErrItemNotFound
	}
	return it, err
}

// ExistingIDsTx filters ids down to items that exist.
func (r *InventoryRepo) ExistingIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
	return filterExisting(ctx, tx, "inventory", ids)
}

func (r *InventoryRepo) List(ctx context.Context, p model.Page) ([]model.InventoryItem, int64, error) {
	total, err := countRows(ctx, r.db, "SELECT COUNT(*) FROM inventory")
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory ORDER BY id LIMIT ? OFFSET ?", p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.InventoryItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *InventoryRepo) Update(ctx context.Context, id uint64, patch model.InventoryPatch) (model.InventoryItem, error) {
	var set setClause
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Quantity != nil {
		set.add("quantity", *patch.Quantity)
	}
	if patch.Price != nil {
		set.add("price", *patch.Price)
	}
	if set.empty() {
		return r.get(ctx, r.db, id)
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE inventory SET "+set.sql()+" WHERE id = ?", append(set.args, id)...); err != nil {
		return model.InventoryItem{}, err
	}
	return r.get(ctx, r.db, id)
}

// Delete removes an item and detaches it from every ticket.
func (r *InventoryRepo) Delete(ctx context.Context, id uint64) error {
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM inventory_tickets WHERE item_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM inventory WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

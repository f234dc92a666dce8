package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/model"
	"github.com/iliyamo/mechanic-shop/internal/testutil"
)

type repos struct {
	db        *sql.DB
	customers *CustomerRepo
	mechanics *MechanicRepo
	items     *InventoryRepo
	tickets   *TicketRepo
}

func newRepos(t *testing.T) repos {
	db := testutil.NewDB(t)
	return repos{
		db:        db,
		customers: NewCustomerRepo(db),
		mechanics: NewMechanicRepo(db),
		items:     NewInventoryRepo(db),
		tickets:   NewTicketRepo(db, DialectSQLite),
	}
}

func (r repos) customer(t *testing.T, email string) model.Customer {
	t.Helper()
	c := model.Customer{Name: "Cust", Email: email, Address: "1 St", Phone: "555", PasswordHash: "x"}
	require.NoError(t, r.customers.Create(context.Background(), &c))
	return c
}

func (r repos) mechanic(t *testing.T, name string) model.Mechanic {
	t.Helper()
	m := model.Mechanic{Name: name, Address: "Garage", Salary: 1000}
	require.NoError(t, r.mechanics.Create(context.Background(), &m))
	return m
}

func (r repos) item(t *testing.T, name string) model.InventoryItem {
	t.Helper()
	it := model.InventoryItem{Name: name, Quantity: 3, Price: 9.5}
	require.NoError(t, r.items.Create(context.Background(), &it))
	return it
}

// inTx runs fn in a committed transaction.
func (r repos) inTx(t *testing.T, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := r.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func (r repos) ticket(t *testing.T, customerID uint64) model.ServiceTicket {
	t.Helper()
	tk := model.ServiceTicket{CustomerID: customerID, Description: "Oil change"}
	r.inTx(t, func(tx *sql.Tx) {
		require.NoError(t, r.tickets.CreateTx(context.Background(), tx, &tk))
	})
	return tk
}

func TestCustomerCreateAndGet(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	c := model.Customer{Name: "John Doe", Email: "  J@X.com ", Address: "1 St", Phone: "555", PasswordHash: "hash"}
	require.NoError(t, r.customers.Create(ctx, &c))
	assert.NotZero(t, c.ID)
	assert.Equal(t, "j@x.com", c.Email)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := r.customers.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	byEmail, err := r.customers.GetByEmail(ctx, "J@x.COM")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byEmail.ID)

	_, err = r.customers.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	_, err = r.customers.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerDuplicateEmail(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	r.customer(t, "a@x.com")

	dup := model.Customer{Name: "B", Email: "A@X.COM", Address: "a", Phone: "1", PasswordHash: "x"}
	assert.ErrorIs(t, r.customers.Create(ctx, &dup), ErrEmailExists)

	other := r.customer(t, "b@x.com")
	taken := "a@x.com"
	_, err := r.customers.Update(ctx, other.ID, model.CustomerPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, total, err := r.customers.List(ctx, model.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestCustomerUpdatePartial(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.customer(t, "a@x.com")

	phone := "999"
	got, err := r.customers.Update(ctx, c.ID, model.CustomerPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "999", got.Phone)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, c.Email, got.Email)

	same, err := r.customers.Update(ctx, c.ID, model.CustomerPatch{})
	require.NoError(t, err)
	assert.Equal(t, "999", same.Phone)

	_, err = r.customers.Update(ctx, 999, model.CustomerPatch{Phone: &phone})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerListPagination(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		r.customer(t, e)
	}

	page, total, err := r.customers.List(ctx, model.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "c@x.com", page[0].Email)

	empty, _, err := r.customers.List(ctx, model.Page{Number: 5, Size: 2})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCustomerDeleteCascadesToOwnTicketsOnly(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	a := r.customer(t, "a@x.com")
	b := r.customer(t, "b@x.com")
	m := r.mechanic(t, "Mo")
	it := r.item(t, "Filter")

	ta := r.ticket(t, a.ID)
	tb := r.ticket(t, b.ID)
	r.inTx(t, func(tx *sql.Tx) {
		for _, tk := range []uint64{ta.ID, tb.ID} {
			_, err := r.tickets.AddMechanicTx(ctx, tx, tk, m.ID)
			require.NoError(t, err)
			_, err = r.tickets.AddItemTx(ctx, tx, tk, it.ID)
			require.NoError(t, err)
		}
	})

	require.NoError(t, r.customers.Delete(ctx, a.ID))
	assert.ErrorIs(t, r.customers.Delete(ctx, a.ID), ErrCustomerNotFound)

	_, err := r.tickets.GetByID(ctx, ta.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	kept, err := r.tickets.GetByID(ctx, tb.ID)
	require.NoError(t, err)
	require.Len(t, kept.Mechanics, 1)
	require.Len(t, kept.InventoryItems, 1)

	_, err = r.mechanics.GetByID(ctx, m.ID)
	assert.NoError(t, err)
	_, err = r.items.GetByID(ctx, it.ID)
	assert.NoError(t, err)

	top, err := r.mechanics.MostTickets(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, top.TicketCount)
}

func TestMechanicNameUniqueOnCreateAndUpdate(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	r.mechanic(t, "Alice")
	bob := r.mechanic(t, "Bob")

	dup := model.Mechanic{Name: "Alice", Address: "x", Salary: 1}
	assert.ErrorIs(t, r.mechanics.Create(ctx, &dup), ErrMechanicNameExists)

	alice := "Alice"
	_, err := r.mechanics.Update(ctx, bob.ID, model.MechanicPatch{Name: &alice})
	assert.ErrorIs(t, err, ErrMechanicNameExists)

	found, err := r.mechanics.GetByName(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)
}

func TestMechanicNamesCompareExactly(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	upper := r.mechanic(t, "Alice")
	lower := r.mechanic(t, "alice")
	assert.NotEqual(t, upper.ID, lower.ID)

	found, err := r.mechanics.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, lower.ID, found.ID)
}

func TestMechanicUpdateAndDelete(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	m := r.mechanic(t, "Alice")
	c := r.customer(t, "a@x.com")
	tk := r.ticket(t, c.ID)
	r.inTx(t, func(tx *sql.Tx) {
		_, err := r.tickets.AddMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
	})

	salary := 2500.0
	got, err := r.mechanics.Update(ctx, m.ID, model.MechanicPatch{Salary: &salary})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, got.Salary)
	assert.Equal(t, "Alice", got.Name)

	require.NoError(t, r.mechanics.Delete(ctx, m.ID))
	assert.ErrorIs(t, r.mechanics.Delete(ctx, m.ID), ErrMechanicNotFound)

	after, err := r.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Mechanics)
}

func TestMostTickets(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	_, err := r.mechanics.MostTickets(ctx)
	assert.ErrorIs(t, err, ErrMechanicNotFound)

	m1 := r.mechanic(t, "One")
	m2 := r.mechanic(t, "Two")
	r.mechanic(t, "Idle")
	_, err = r.mechanics.MostTickets(ctx)
	assert.ErrorIs(t, err, ErrMechanicNotFound, "mechanics without assignments never qualify")

	c := r.customer(t, "a@x.com")
	t1 := r.ticket(t, c.ID)
	t2 := r.ticket(t, c.ID)
	r.inTx(t, func(tx *sql.Tx) {
		_, err := r.tickets.AddMechanicTx(ctx, tx, t1.ID, m2.ID)
		require.NoError(t, err)
		_, err = r.tickets.AddMechanicTx(ctx, tx, t1.ID, m1.ID)
		require.NoError(t, err)
	})

	top, err := r.mechanics.MostTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, top.Mechanic.ID, "ties go to the lowest id")
	assert.EqualValues(t, 1, top.TicketCount)

	r.inTx(t, func(tx *sql.Tx) {
		_, err := r.tickets.AddMechanicTx(ctx, tx, t2.ID, m2.ID)
		require.NoError(t, err)
	})
	top, err = r.mechanics.MostTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Two", top.Mechanic.Name)
	assert.EqualValues(t, 2, top.TicketCount)
}

func TestInventoryCRUD(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	it := r.item(t, "Brake pad")
	assert.NotZero(t, it.ID)

	qty := 0
	got, err := r.items.Update(ctx, it.ID, model.InventoryPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 9.5, got.Price)

	list, total, err := r.items.List(ctx, model.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	require.NoError(t, r.items.Delete(ctx, it.ID))
	_, err = r.items.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, r.items.Delete(ctx, it.ID), ErrItemNotFound)
}

func TestTicketAssociationsAreIdempotent(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.customer(t, "a@x.com")
	m := r.mechanic(t, "Mo")
	tk := r.ticket(t, c.ID)

	r.inTx(t, func(tx *sql.Tx) {
		added, err := r.tickets.AddMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = r.tickets.AddMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
		assert.False(t, added)
	})

	var n int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM service_mechanics WHERE ticket_id = ?", tk.ID).Scan(&n))
	assert.Equal(t, 1, n)

	r.inTx(t, func(tx *sql.Tx) {
		removed, err := r.tickets.RemoveMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = r.tickets.RemoveMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM service_mechanics WHERE ticket_id = ?", tk.ID).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestTicketCreateDefaultsDateAndLoadsRelations(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.customer(t, "a@x.com")
	m2 := r.mechanic(t, "Second")
	m1 := r.mechanic(t, "First")
	it := r.item(t, "Oil")

	before := time.Now().UTC().Add(-time.Second)
	tk := r.ticket(t, c.ID)
	assert.Equal(t, c.ID, tk.CustomerID)
	assert.False(t, tk.Date.Before(before.Truncate(time.Second)))
	assert.NotNil(t, tk.Mechanics)
	assert.NotNil(t, tk.InventoryItems)

	r.inTx(t, func(tx *sql.Tx) {
		for _, id := range []uint64{m1.ID, m2.ID} {
			_, err := r.tickets.AddMechanicTx(ctx, tx, tk.ID, id)
			require.NoError(t, err)
		}
		_, err := r.tickets.AddItemTx(ctx, tx, tk.ID, it.ID)
		require.NoError(t, err)
	})

	got, err := r.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, got.Mechanics, 2)
	assert.Less(t, got.Mechanics[0].ID, got.Mechanics[1].ID)
	require.Len(t, got.InventoryItems, 1)
	assert.Equal(t, "Oil", got.InventoryItems[0].Name)
}

func TestTicketListByCustomerAndUpdate(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	a := r.customer(t, "a@x.com")
	b := r.customer(t, "b@x.com")
	r.ticket(t, a.ID)
	r.ticket(t, b.ID)
	tb := r.ticket(t, b.ID)

	mine, err := r.tickets.ListByCustomer(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, tk := range mine {
		assert.Equal(t, b.ID, tk.CustomerID)
	}

	all, total, err := r.tickets.List(ctx, model.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 2)

	desc := "Brake job"
	when := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	r.inTx(t, func(tx *sql.Tx) {
		require.NoError(t, r.tickets.UpdateTx(ctx, tx, tb.ID, model.TicketPatch{Description: &desc, Date: &when}))
		assert.ErrorIs(t, r.tickets.UpdateTx(ctx, tx, 999, model.TicketPatch{Description: &desc}), ErrTicketNotFound)
	})
	got, err := r.tickets.GetByID(ctx, tb.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brake job", got.Description)
	assert.True(t, when.Equal(got.Date), "got %s", got.Date)
	assert.Equal(t, b.ID, got.CustomerID)
}

func TestTicketDeleteKeepsMechanicsAndItems(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	c := r.customer(t, "a@x.com")
	m := r.mechanic(t, "Mo")
	it := r.item(t, "Oil")
	tk := r.ticket(t, c.ID)
	r.inTx(t, func(tx *sql.Tx) {
		_, err := r.tickets.AddMechanicTx(ctx, tx, tk.ID, m.ID)
		require.NoError(t, err)
		_, err = r.tickets.AddItemTx(ctx, tx, tk.ID, it.ID)
		require.NoError(t, err)
	})

	r.inTx(t, func(tx *sql.Tx) {
		require.NoError(t, r.tickets.DeleteTx(ctx, tx, tk.ID))
		assert.ErrorIs(t, r.tickets.DeleteTx(ctx, tx, tk.ID), ErrTicketNotFound)
	})

	_, err := r.mechanics.GetByID(ctx, m.ID)
	assert.NoError(t, err)
	_, err = r.items.GetByID(ctx, it.ID)
	assert.NoError(t, err)
}

func TestExistingIDsFiltersAndDedupes(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()
	m1 := r.mechanic(t, "One")
	m2 := r.mechanic(t, "Two")

	r.inTx(t, func(tx *sql.Tx) {
		ids, err := r.mechanics.ExistingIDsTx(ctx, tx, []uint64{m2.ID, 404, m1.ID, m2.ID, 0})
		require.NoError(t, err)
		assert.Equal(t, []uint64{m2.ID, m1.ID}, ids)

		none, err := r.mechanics.ExistingIDsTx(ctx, tx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestInsertIgnoreByDialect(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO service_mechanics (ticket_id, mechanic_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		DialectSQLite.insertIgnore("service_mechanics", "ticket_id", "mechanic_id"))
	assert.Equal(t,
		"INSERT INTO service_mechanics (ticket_id, mechanic_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE ticket_id = ticket_id",
		DialectMySQL.insertIgnore("service_mechanics", "ticket_id", "mechanic_id"))
	assert.Equal(t, DialectSQLite, DialectFor("sqlite3"))
	assert.Equal(t, DialectMySQL, DialectFor("mysql"))
}

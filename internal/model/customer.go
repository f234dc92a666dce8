package model

import "time"

// Customer represents a row of the `customers` table.  The password hash is
// never serialized.
type Customer struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CustomerPatch lists the fields a partial update may change.  Nil fields
// are left untouched.  PasswordHash is set by the caller after hashing.
type CustomerPatch struct {
	Name         *string
	Email        *string
	Address      *string
	Phone        *string
	PasswordHash *string
}

// Empty reports whether the patch changes nothing.
func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Address == nil && p.Phone == nil && p.PasswordHash == nil
}

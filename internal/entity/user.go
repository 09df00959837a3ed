// Package entity holds the application's concrete domain types: the
// generated-CRUD demonstration entity (User) the framework's tests and
// cmd/server wire end to end, plus a second entity (Product) whose
// controller declares its own findAll to demonstrate the CRUD generator's
// route-override invariant (spec.md §4.7 point 3, §8 "Route override").
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the framework's demonstration entity, grounded on the teacher's
// internal/domain.User (same field set, uuid.UUID primary key, bcrypt
// password hash, soft-delete timestamp) but reflected against the
// repository synthesizer's `db`/`pk` tag convention instead of a
// hand-written repository.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id" pk:"true"`
	Email        string     `json:"email" db:"email" validate:"required,email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FirstName    string     `json:"firstName" db:"first_name"`
	LastName     string     `json:"lastName" db:"last_name"`
	Active       bool       `json:"active" db:"active"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at" softdelete:"true"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

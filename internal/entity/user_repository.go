package entity

import (
	"context"

	"github.com/google/uuid"

	"github.com/aras-services/goframe/internal/repository"
)

// UserRepository is the declared-interface-as-struct the repository
// Synthesizer wires: Base[User, uuid.UUID] supplies save/findById/findAll/
// etc., and FindByEmail/FindByActiveOrderByCreatedAtDesc are custom query
// methods whose SQL is derived from their own names by queryparse.
type UserRepository struct {
	repository.Base[User, uuid.UUID]

	// FindByEmail backs login (Open Question 4's "BOTH" resolution tries
	// FindByEmail first, then FindByUsername — this framework's demo
	// entity only carries email, so login resolves through this alone).
	FindByEmail func(ctx context.Context, email string) (*User, error)

	// FindByActiveOrderByCreatedAtDesc demonstrates a single-predicate,
	// ordered custom query synthesized from its method name.
	FindByActiveOrderByCreatedAtDesc func(ctx context.Context, active bool) ([]*User, error)
}

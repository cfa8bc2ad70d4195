package customer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("customer: not found")

type Customer struct {
	ID    uuid.UUID
	Name  string
	Email string
	CPF   string
}

// Directory resolves customers by their national id (CPF).
type Directory interface {
	FindByCPF(ctx context.Context, cpf string) (*Customer, error)
}

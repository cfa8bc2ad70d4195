package application

import (
	"context"
	"errors"
	"fmt"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation")
	// ErrUpstream marks a failure reported by the payment gateway or the kitchen.
	ErrUpstream = errors.New("upstream")
)

// Validation wraps a human-readable reason as a validation error.
func Validation(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// ValidationErr marks err as a validation error while keeping it matchable.
func ValidationErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Upstream tags err as a collaborator failure.
func Upstream(peer string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, peer, err)
}

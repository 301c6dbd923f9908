// Package store defines the backend-agnostic interface for document operations.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidID is returned for an empty document id.
	ErrInvalidID = errors.New("document id must be a non-empty string")

	// ErrNoFields is returned for an update that names no fields.
	ErrNoFields = errors.New("no fields to update")
)

// Store defines the interface for document store operations.
// All database calls go through this interface.
// Handlers never import a database SDK directly.
type Store interface {
	// Get returns a single document.
	// Returns an error wrapping ErrNotFound if it does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes a full document, replacing any existing one.
	Set(ctx context.Context, collection, id string, data map[string]any) error

	// Update merges the given top-level fields into an existing document.
	// Fails if the document does not exist or data is empty.
	Update(ctx context.Context, collection, id string, data map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Where returns every document whose field equals value.
	// Returns an empty slice if nothing matches.
	Where(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Commit applies all writes of the batch atomically.
	Commit(ctx context.Context, b *Batch) error

	// Close releases the underlying connections.
	Close() error
}

// CheckID returns ErrInvalidID if id is empty.
func CheckID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	return nil
}

// CheckUpdate validates the arguments of an Update call.
func CheckUpdate(id string, data map[string]any) error {
	if err := CheckID(id); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNoFields
	}
	return nil
}

// WithTimeout bounds ctx by d. A zero d leaves ctx unbounded.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

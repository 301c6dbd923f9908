// Package memory implements store.Store in process memory.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"taskapi/internal/store"
)

// Store is a map-backed store.Store. Documents are copied on the way in and out.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]any // collection -> id -> fields
}

// New creates an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]map[string]map[string]any)}
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if err := store.CheckID(id); err != nil {
		return store.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return store.Document{}, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return store.Document{ID: id, Data: copyFields(data)}, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, id, data)
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if err := store.CheckUpdate(id, data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("no document to update: %s/%s: %w", collection, id, store.ErrNotFound)
	}
	for k, v := range data {
		existing[k] = v
	}
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := store.CheckID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

// Where implements store.Store. Results are ordered by id.
func (s *Store) Where(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []store.Document{}
	for id, data := range s.docs[collection] {
		v, ok := data[field]
		if !ok || !reflect.DeepEqual(v, value) {
			continue
		}
		result = append(result, store.Document{ID: id, Data: copyFields(data)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Commit implements store.Store. The whole batch is applied under one lock.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range b.Writes() {
		switch w.Kind {
		case store.WriteSet:
			s.setLocked(w.Collection, w.ID, w.Data)
		case store.WriteDelete:
			delete(s.docs[w.Collection], w.ID)
		}
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

func (s *Store) setLocked(collection, id string, data map[string]any) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	s.docs[collection][id] = copyFields(data)
}

func copyFields(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

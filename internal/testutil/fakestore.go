// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"taskapi/internal/backend/memory"
	"taskapi/internal/store"
)

// FakeStore is an in-memory store.Store with error injection and call counting.
type FakeStore struct {
	*memory.Store

	mu    sync.Mutex
	calls map[string]int

	// Error injection for testing
	GetErr    error
	SetErr    error
	UpdateErr error
	DeleteErr error
	WhereErr  error
	CommitErr error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Store: memory.New(),
		calls: make(map[string]int),
	}
}

// Seed writes a document directly, bypassing error injection and counters.
func (f *FakeStore) Seed(collection, id string, data map[string]any) {
	if err := f.Store.Set(context.Background(), collection, id, data); err != nil {
		panic(err)
	}
}

// Calls returns how many times an operation was invoked.
func (f *FakeStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of store calls of any kind.
func (f *FakeStore) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeStore) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

// Get implements store.Store.
func (f *FakeStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	f.record("get")
	if f.GetErr != nil {
		return store.Document{}, f.GetErr
	}
	return f.Store.Get(ctx, collection, id)
}

// Set implements store.Store.
func (f *FakeStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	f.record("set")
	if f.SetErr != nil {
		return f.SetErr
	}
	return f.Store.Set(ctx, collection, id, data)
}

// Update implements store.Store.
func (f *FakeStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	f.record("update")
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	return f.Store.Update(ctx, collection, id, data)
}

// Delete implements store.Store.
func (f *FakeStore) Delete(ctx context.Context, collection, id string) error {
	f.record("delete")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Store.Delete(ctx, collection, id)
}

// Where implements store.Store.
func (f *FakeStore) Where(ctx context.Context, collection, field string, value any) ([]store.Document, error) {
	f.record("where")
	if f.WhereErr != nil {
		return nil, f.WhereErr
	}
	return f.Store.Where(ctx, collection, field, value)
}

// Commit implements store.Store.
func (f *FakeStore) Commit(ctx context.Context, b *store.Batch) error {
	f.record("commit")
	if f.CommitErr != nil {
		return f.CommitErr
	}
	return f.Store.Commit(ctx, b)
}

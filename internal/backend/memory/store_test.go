package memory_test

import (
	"context"
	"errors"
	"testing"

	"taskapi/internal/backend/memory"
	"taskapi/internal/store"
	"taskapi/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}

func TestGet_NotFound(t *testing.T) {
	s := memory.New()

	_, err := s.Get(context.Background(), "tasks", "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetGet_Overwrites(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "tasks", "t1", map[string]any{"title": "A", "status": "open"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "tasks", "t1", map[string]any{"title": "B"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, "tasks", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["title"] != "B" {
		t.Errorf("expected title B, got %v", doc.Data["title"])
	}
	if _, ok := doc.Data["status"]; ok {
		t.Error("expected status to be gone after overwrite")
	}
}

func TestSet_CopiesInput(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	data := map[string]any{"title": "A"}
	_ = s.Set(ctx, "tasks", "t1", data)
	data["title"] = "mutated"

	doc, _ := s.Get(ctx, "tasks", "t1")
	if doc.Data["title"] != "A" {
		t.Errorf("expected stored title A, got %v", doc.Data["title"])
	}
}

func TestUpdate_Merges(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_ = s.Set(ctx, "tasks", "t1", map[string]any{"title": "A", "status": "open"})

	if err := s.Update(ctx, "tasks", "t1", map[string]any{"status": "done"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, _ := s.Get(ctx, "tasks", "t1")
	if doc.Data["title"] != "A" || doc.Data["status"] != "done" {
		t.Errorf("unexpected fields after update: %v", doc.Data)
	}
}

func TestUpdate_Missing(t *testing.T) {
	s := memory.New()

	err := s.Update(context.Background(), "tasks", "nope", map[string]any{"status": "done"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s.Len("tasks") != 0 {
		t.Error("update must not create a document")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_ = s.Set(ctx, "tasks", "t1", map[string]any{})

	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "tasks", "t1"); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if s.Len("tasks") != 0 {
		t.Errorf("expected empty collection, got %d", s.Len("tasks"))
	}
}

func TestEmptyID(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Set(ctx, "tasks", "", nil); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("set: expected ErrInvalidID, got %v", err)
	}
	if _, err := s.Get(ctx, "tasks", ""); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("get: expected ErrInvalidID, got %v", err)
	}
	if err := s.Delete(ctx, "tasks", ""); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("delete: expected ErrInvalidID, got %v", err)
	}
}

func TestWhere(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_ = s.Set(ctx, "tasks", "b", map[string]any{"userId": "u1"})
	_ = s.Set(ctx, "tasks", "a", map[string]any{"userId": "u1"})
	_ = s.Set(ctx, "tasks", "c", map[string]any{"userId": "u2"})
	_ = s.Set(ctx, "tasks", "d", map[string]any{"title": "no owner"})

	docs, err := s.Where(ctx, "tasks", "userId", "u1")
	if err != nil {
		t.Fatalf("where: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("expected [a b], got %+v", docs)
	}

	none, err := s.Where(ctx, "tasks", "userId", "nobody")
	if err != nil {
		t.Fatalf("where: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestCommit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	_ = s.Set(ctx, "tasks", "old", map[string]any{})

	b := store.NewBatch().
		Set("tasks", "a", map[string]any{"title": "A"}).
		Set("tasks", "b", map[string]any{"title": "B"}).
		Delete("tasks", "old")
	if err := s.Commit(ctx, b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if s.Len("tasks") != 2 {
		t.Errorf("expected 2 tasks, got %d", s.Len("tasks"))
	}
	if _, err := s.Get(ctx, "tasks", "old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected old to be deleted, got %v", err)
	}
}

func TestCommit_InvalidWriteAppliesNothing(t *testing.T) {
	s := memory.New()

	b := store.NewBatch().
		Set("tasks", "a", map[string]any{}).
		Set("tasks", "", map[string]any{})
	if err := s.Commit(context.Background(), b); !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if s.Len("tasks") != 0 {
		t.Errorf("expected no writes, got %d", s.Len("tasks"))
	}
}

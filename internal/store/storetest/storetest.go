// Package storetest runs the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"taskapi/internal/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("SetGet", func(t *testing.T) { testSetGet(t, newStore(t)) })
	t.Run("SetReplaces", func(t *testing.T) { testSetReplaces(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("UpdateEmpty", func(t *testing.T) { testUpdateEmpty(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("Where", func(t *testing.T) { testWhere(t, newStore(t)) })
	t.Run("Commit", func(t *testing.T) { testCommit(t, newStore(t)) })
	t.Run("CommitInvalid", func(t *testing.T) { testCommitInvalid(t, newStore(t)) })
	t.Run("EmptyID", func(t *testing.T) { testEmptyID(t, newStore(t)) })
}

// collection is unique per call so backends that share state across subtests
// do not see each other's documents.
func collection() string {
	return fmt.Sprintf("tasks_%d", time.Now().UnixNano())
}

func ctx() context.Context {
	return context.Background()
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.Get(ctx(), collection(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSetGet(t *testing.T, s store.Store) {
	col := collection()
	data := map[string]any{"title": "Buy milk", "userId": "u1", "status": nil}
	if err := s.Set(ctx(), col, "t1", data); err != nil {
		t.Fatalf("Set: %v", err)
	}

	doc, err := s.Get(ctx(), col, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ID != "t1" {
		t.Errorf("expected id %q, got %q", "t1", doc.ID)
	}
	if doc.Data["title"] != "Buy milk" || doc.Data["userId"] != "u1" {
		t.Errorf("unexpected data %v", doc.Data)
	}
	if v, ok := doc.Data["status"]; !ok || v != nil {
		t.Errorf("expected null status to round-trip, got %v (present=%v)", v, ok)
	}
}

func testSetReplaces(t *testing.T, s store.Store) {
	col := collection()
	if err := s.Set(ctx(), col, "t1", map[string]any{"title": "Old", "priority": "high"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx(), col, "t1", map[string]any{"title": "New"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	doc, err := s.Get(ctx(), col, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Data["title"] != "New" {
		t.Errorf("expected title New, got %v", doc.Data["title"])
	}
	if _, ok := doc.Data["priority"]; ok {
		t.Error("expected Set to replace the whole document")
	}
}

func testUpdate(t *testing.T, s store.Store) {
	col := collection()
	if err := s.Set(ctx(), col, "t1", map[string]any{"title": "Buy milk", "status": "open"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Update(ctx(), col, "t1", map[string]any{"status": "done"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, err := s.Get(ctx(), col, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Data["status"] != "done" || doc.Data["title"] != "Buy milk" {
		t.Errorf("unexpected data after update %v", doc.Data)
	}
}

func testUpdateMissing(t *testing.T, s store.Store) {
	col := collection()
	err := s.Update(ctx(), col, "missing", map[string]any{"status": "done"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx(), col, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Error("Update must not create a document")
	}
}

func testUpdateEmpty(t *testing.T, s store.Store) {
	col := collection()
	if err := s.Set(ctx(), col, "t1", map[string]any{"title": "Buy milk"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for _, data := range []map[string]any{{}, nil} {
		if err := s.Update(ctx(), col, "t1", data); !errors.Is(err, store.ErrNoFields) {
			t.Errorf("expected ErrNoFields for %v, got %v", data, err)
		}
	}

	doc, err := s.Get(ctx(), col, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc.Data) != 1 || doc.Data["title"] != "Buy milk" {
		t.Errorf("expected document to be unchanged, got %v", doc.Data)
	}
}

func testDelete(t *testing.T, s store.Store) {
	col := collection()
	if err := s.Set(ctx(), col, "t1", map[string]any{"title": "A"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx(), col, "t1"); err != nil {
			t.Fatalf("Delete %d: %v", i, err)
		}
	}
	if _, err := s.Get(ctx(), col, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func testWhere(t *testing.T, s store.Store) {
	col := collection()
	seed := map[string]string{"a": "u1", "b": "u2", "c": "u1"}
	for id, user := range seed {
		if err := s.Set(ctx(), col, id, map[string]any{"userId": user}); err != nil {
			t.Fatalf("Set %s: %v", id, err)
		}
	}

	docs, err := s.Where(ctx(), col, "userId", "u1")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("expected [a c], got %v", ids)
	}

	docs, err = s.Where(ctx(), col, "userId", "nobody")
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", docs)
	}
}

func testCommit(t *testing.T, s store.Store) {
	col := collection()
	if err := s.Set(ctx(), col, "old", map[string]any{"title": "Old"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	b := store.NewBatch().
		Set(col, "a", map[string]any{"title": "A"}).
		Set(col, "b", map[string]any{"title": "B"}).
		Delete(col, "old").
		Delete(col, "never-existed")
	if err := s.Commit(ctx(), b); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		if _, err := s.Get(ctx(), col, id); err != nil {
			t.Errorf("expected %s to exist: %v", id, err)
		}
	}
	if _, err := s.Get(ctx(), col, "old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected old to be deleted, got %v", err)
	}
}

func testCommitInvalid(t *testing.T, s store.Store) {
	col := collection()
	b := store.NewBatch().
		Set(col, "a", map[string]any{"title": "A"}).
		Set(col, "", map[string]any{"title": "no id"})

	err := s.Commit(ctx(), b)
	if !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := s.Get(ctx(), col, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Error("expected no writes from a rejected batch")
	}
}

func testEmptyID(t *testing.T, s store.Store) {
	col := collection()
	if _, err := s.Get(ctx(), col, ""); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("Get: expected ErrInvalidID, got %v", err)
	}
	if err := s.Set(ctx(), col, "", map[string]any{}); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("Set: expected ErrInvalidID, got %v", err)
	}
	if err := s.Update(ctx(), col, "", map[string]any{"a": 1}); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("Update: expected ErrInvalidID, got %v", err)
	}
	if err := s.Delete(ctx(), col, ""); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("Delete: expected ErrInvalidID, got %v", err)
	}
}

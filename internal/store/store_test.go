package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskapi/internal/store"
)

func TestDocumentMerged(t *testing.T) {
	doc := store.Document{
		ID:   "t1",
		Data: map[string]any{"title": "Buy milk"},
	}

	got := doc.Merged()

	if got["id"] != "t1" {
		t.Errorf("expected id %q, got %v", "t1", got["id"])
	}
	if got["title"] != "Buy milk" {
		t.Errorf("expected title %q, got %v", "Buy milk", got["title"])
	}
	if _, ok := doc.Data["id"]; ok {
		t.Error("Merged must not modify the document data")
	}
}

func TestDocumentMerged_StoredIDWins(t *testing.T) {
	doc := store.Document{
		ID:   "t1",
		Data: map[string]any{"id": "renamed"},
	}

	if got := doc.Merged()["id"]; got != "renamed" {
		t.Errorf("expected stored id %q, got %v", "renamed", got)
	}
}

func TestDocumentMerged_NilData(t *testing.T) {
	got := store.Document{ID: "t1"}.Merged()
	if len(got) != 1 || got["id"] != "t1" {
		t.Errorf("expected only the id, got %v", got)
	}
}

func TestBatch_Writes(t *testing.T) {
	b := store.NewBatch().
		Set("tasks", "a", map[string]any{"title": "A"}).
		Delete("tasks", "b")

	if b.Len() != 2 {
		t.Fatalf("expected 2 writes, got %d", b.Len())
	}
	writes := b.Writes()
	if writes[0].Kind != store.WriteSet || writes[0].ID != "a" {
		t.Errorf("unexpected first write: %+v", writes[0])
	}
	if writes[1].Kind != store.WriteDelete || writes[1].Data != nil {
		t.Errorf("unexpected second write: %+v", writes[1])
	}
}

func TestBatch_ValidateEmptyID(t *testing.T) {
	b := store.NewBatch().
		Set("tasks", "a", nil).
		Set("tasks", "", nil)

	err := b.Validate()
	if !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	expected := "write 1 (set): document id must be a non-empty string"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := store.WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("expected no deadline for zero timeout")
	}

	ctx2, cancel2 := store.WithTimeout(context.Background(), time.Minute)
	defer cancel2()
	if _, ok := ctx2.Deadline(); !ok {
		t.Error("expected a deadline")
	}
}

func TestCheckUpdate(t *testing.T) {
	if err := store.CheckUpdate("t1", map[string]any{"status": "done"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := store.CheckUpdate("", map[string]any{"status": "done"}); !errors.Is(err, store.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := store.CheckUpdate("t1", map[string]any{}); !errors.Is(err, store.ErrNoFields) {
		t.Errorf("expected ErrNoFields, got %v", err)
	}
	if err := store.CheckUpdate("t1", nil); !errors.Is(err, store.ErrNoFields) {
		t.Errorf("expected ErrNoFields, got %v", err)
	}
}

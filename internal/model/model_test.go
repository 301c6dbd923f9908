package model_test

import (
	"testing"

	"taskapi/internal/model"
)

func TestTaskDocument(t *testing.T) {
	body := map[string]any{
		"id":      "t1",
		"userId":  "u1",
		"title":   "Buy milk",
		"dueDate": 20240101.0,
		"extra":   "dropped",
	}

	doc := model.TaskDocument(body)

	if len(doc) != 7 {
		t.Errorf("expected 7 fields, got %d: %v", len(doc), doc)
	}
	if _, ok := doc["extra"]; ok {
		t.Error("unexpected field extra")
	}
	if doc["dueDate"] != 20240101.0 {
		t.Errorf("expected dueDate kept as sent, got %v", doc["dueDate"])
	}
	if v, ok := doc["status"]; !ok || v != nil {
		t.Errorf("expected absent status stored as nil, got %v (present=%v)", v, ok)
	}
}

func TestUserDocument(t *testing.T) {
	doc := model.UserDocument(map[string]any{"uid": "u1", "email": "a@b.c", "password": "x"})

	if len(doc) != 3 || doc["uid"] != "u1" || doc["email"] != "a@b.c" {
		t.Errorf("unexpected user document: %v", doc)
	}
}

func TestStringField(t *testing.T) {
	body := map[string]any{"uid": "u1", "n": 3.0}

	if got := model.StringField(body, "uid"); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
	if got := model.StringField(body, "n"); got != "" {
		t.Errorf("expected empty for non-string, got %q", got)
	}
	if got := model.StringField(body, "missing"); got != "" {
		t.Errorf("expected empty for missing, got %q", got)
	}
}

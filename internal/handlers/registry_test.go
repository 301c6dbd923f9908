package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/testutil"
)

func newTestHandler(version int) *Handler {
	cfg := config.Default()
	cfg.APIVersion = version
	return NewHandler(cfg, testutil.NewFakeStore(), zap.NewNop())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	rt := Route{Method: http.MethodGet, Path: "/x", Handle: func(*gin.Context) {}}

	if err := reg.Register(rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := reg.Register(rt)
	if err == nil {
		t.Fatal("expected error for duplicate route")
	}
	if err.Error() != "route already registered: GET /x" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	reg := NewRegistry()
	noop := func(*gin.Context) {}
	for _, rt := range []Route{
		{Method: http.MethodPost, Path: "/b", Handle: noop},
		{Method: http.MethodGet, Path: "/b", Handle: noop},
		{Method: http.MethodGet, Path: "/a", Handle: noop},
	} {
		if err := reg.Register(rt); err != nil {
			t.Fatal(err)
		}
	}

	all := reg.All()
	expected := []string{"GET /a", "GET /b", "POST /b"}
	if len(all) != len(expected) {
		t.Fatalf("expected %d routes, got %d", len(expected), len(all))
	}
	for i, rt := range all {
		if rt.key() != expected[i] {
			t.Errorf("position %d: expected %q, got %q", i, expected[i], rt.key())
		}
	}
}

func TestRoute_In(t *testing.T) {
	all := Route{}
	if !all.In(config.V1) || !all.In(config.V2) {
		t.Error("route without versions should be in every version")
	}
	only2 := Route{Versions: []int{config.V2}}
	if only2.In(config.V1) {
		t.Error("v2 route should not be in v1")
	}
	if !only2.In(config.V2) {
		t.Error("v2 route should be in v2")
	}
}

func TestHandlerRegistry_V1(t *testing.T) {
	reg, err := newTestHandler(config.V1).Registry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	present := [][2]string{
		{http.MethodPost, "/login"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/tasks/:id"},
		{http.MethodPost, "/tasks"},
		{http.MethodPut, "/tasks/:id"},
		{http.MethodDelete, "/tasks/:id"},
	}
	for _, p := range present {
		if _, ok := reg.Find(p[0], p[1]); !ok {
			t.Errorf("expected %s %s in v1", p[0], p[1])
		}
	}

	absent := [][2]string{
		{http.MethodPost, "/tasks/batch"},
		{http.MethodDelete, "/tasks/batch"},
		{http.MethodDelete, "/tasks"},
	}
	for _, p := range absent {
		if _, ok := reg.Find(p[0], p[1]); ok {
			t.Errorf("expected %s %s to be absent from v1", p[0], p[1])
		}
	}
}

func TestHandlerRegistry_V2(t *testing.T) {
	reg, err := newTestHandler(config.V2).Registry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reg.All()) != 8 {
		t.Errorf("expected 8 routes, got %d", len(reg.All()))
	}
	if _, ok := reg.Find(http.MethodDelete, "/tasks/:id"); ok {
		t.Error("expected DELETE /tasks/:id to be absent from v2")
	}
	for _, p := range [][2]string{
		{http.MethodPost, "/tasks/batch"},
		{http.MethodDelete, "/tasks/batch"},
		{http.MethodDelete, "/tasks"},
	} {
		if _, ok := reg.Find(p[0], p[1]); !ok {
			t.Errorf("expected %s %s in v2", p[0], p[1])
		}
	}
}

package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"taskapi/internal/config"
)

// Route binds a method and path to a handler.
type Route struct {
	Method string
	Path   string

	// Versions lists the API versions that serve this route. Empty means all.
	Versions []int

	Handle gin.HandlerFunc
}

// In reports whether the route is served by API version v.
func (r Route) In(v int) bool {
	if len(r.Versions) == 0 {
		return true
	}
	for _, rv := range r.Versions {
		if rv == v {
			return true
		}
	}
	return false
}

func (r Route) key() string {
	return r.Method + " " + r.Path
}

// Registry holds the routes of one API version.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]Route // "METHOD path" -> route
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[string]Route),
	}
}

// Register adds a route.
// Returns an error if the method and path are already registered.
func (r *Registry) Register(rt Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[rt.key()]; exists {
		return fmt.Errorf("route already registered: %s", rt.key())
	}
	r.routes[rt.key()] = rt
	return nil
}

// Find looks up a route by method and path template.
func (r *Registry) Find(method, path string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[method+" "+path]
	return rt, ok
}

// All returns all routes sorted by path, then method.
func (r *Registry) All() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Route, 0, len(r.routes))
	for _, rt := range r.routes {
		result = append(result, rt)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}

// Mount registers every route on the gin router.
func (r *Registry) Mount(router gin.IRoutes) {
	for _, rt := range r.All() {
		router.Handle(rt.Method, rt.Path, rt.Handle)
	}
}

// Routes returns the full route table across versions.
func (h *Handler) Routes() []Route {
	v1 := []int{config.V1}
	v2 := []int{config.V2}
	return []Route{
		{Method: http.MethodPost, Path: "/login", Handle: h.Login},
		{Method: http.MethodGet, Path: "/tasks", Handle: h.ListTasks},
		{Method: http.MethodGet, Path: "/tasks/:id", Handle: h.GetTask},
		{Method: http.MethodPost, Path: "/tasks", Handle: h.CreateTask},
		{Method: http.MethodPost, Path: "/tasks/batch", Versions: v2, Handle: h.BatchUpsertTasks},
		{Method: http.MethodPut, Path: "/tasks/:id", Handle: h.UpdateTask},
		{Method: http.MethodDelete, Path: "/tasks/:id", Versions: v1, Handle: h.DeleteTask},
		{Method: http.MethodDelete, Path: "/tasks", Versions: v2, Handle: h.DeleteTaskByQuery},
		{Method: http.MethodDelete, Path: "/tasks/batch", Versions: v2, Handle: h.BatchDeleteTasks},
	}
}

// Registry returns a registry holding the routes of the handler's API version.
func (h *Handler) Registry() (*Registry, error) {
	reg := NewRegistry()
	for _, rt := range h.Routes() {
		if !rt.In(h.version) {
			continue
		}
		if err := reg.Register(rt); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

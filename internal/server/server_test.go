package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/metrics"
	"taskapi/internal/model"
	"taskapi/internal/output"
	"taskapi/internal/testutil"
)

func newTestRouter(t *testing.T, cfg *config.Config, svc *testutil.FakeStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	r, err := NewRouter(cfg, m.InstrumentStore(svc), zap.NewNop(), m)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(t, config.Default(), testutil.NewFakeStore())

	w := get(r, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("HEAD: expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRouter_RequestID(t *testing.T) {
	r := newTestRouter(t, config.Default(), testutil.NewFakeStore())

	w := get(r, "/healthz", nil)
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	w = get(r, "/healthz", http.Header{RequestIDHeader: []string{"abc-123"}})
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	svc := testutil.NewFakeStore()
	svc.Seed(model.TasksCollection, "t1", map[string]any{"title": "A"})
	r := newTestRouter(t, config.Default(), svc)

	if w := get(r, "/tasks/t1", nil); w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := get(r, "/metrics", nil).Body.String()
	for _, name := range []string{
		"taskapi_http_request_duration_seconds",
		"taskapi_store_operations_total",
		"taskapi_store_operation_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected /metrics to contain %s", name)
		}
	}
	if !strings.Contains(body, `route="/tasks/:id"`) {
		t.Error("expected request duration labelled by route template")
	}
}

func TestRouter_VersionRoutes(t *testing.T) {
	tests := []struct {
		version int
		status  int
	}{
		{config.V1, http.StatusNotFound},
		{config.V2, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("v%d", tt.version), func(t *testing.T) {
			cfg := config.Default()
			cfg.APIVersion = tt.version
			r := newTestRouter(t, cfg, testutil.NewFakeStore())

			req := httptest.NewRequest(http.MethodPost, "/tasks/batch", strings.NewReader("{}"))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	cfg := config.Default()
	cfg.CORS.AllowedOrigins = []string{"http://localhost:8080"}
	r := newTestRouter(t, cfg, testutil.NewFakeStore())

	w := get(r, "/healthz", http.Header{"Origin": []string{"http://localhost:8080"}})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8080" {
		t.Errorf("expected allowed origin header, got %q", got)
	}

	w = get(r, "/healthz", http.Header{"Origin": []string{"http://evil.example"}})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected disallowed origin to get %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name     string
		env      output.Envelope
		expected string
	}{
		{"v1", output.V1{}, "Internal server error: panic: boom"},
		{"v2", output.V2{}, `{"details":"panic: boom","error":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(RequestID(), Recovery(zap.NewNop(), tt.env))
			r.GET("/boom", func(c *gin.Context) {
				panic("boom")
			})

			w := get(r, "/boom", nil)
			if w.Code != http.StatusInternalServerError {
				t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
			}
			if w.Body.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, w.Body.String())
			}
		})
	}
}

func TestRouter_PanicCountedInMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.APIVersion = config.V1
	r := newTestRouter(t, cfg, testutil.NewFakeStore())
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := get(r, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "Internal server error: ") {
		t.Errorf("expected v1 text body, got %q", w.Body.String())
	}

	body := get(r, "/metrics", nil).Body.String()
	if !strings.Contains(body, `route="/boom",status="500"`) {
		t.Errorf("expected the panic to be recorded as a 500, got:\n%s", body)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	r := newTestRouter(t, config.Default(), testutil.NewFakeStore())
	srv := New(ln.Addr().String(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

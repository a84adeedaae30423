package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type pingMount struct{}

func (pingMount) Mount(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func TestHandlerRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	h := NewHandler(Options{Metrics: metrics, Mounts: []Mounter{pingMount{}}})

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/health", http.StatusOK, "."},
		{"/metrics", http.StatusOK, "# metrics"},
		{"/ping", http.StatusOK, "pong"},
		{"/panic", http.StatusInternalServerError, ""},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.path, rec.Code, tc.status)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Fatalf("%s: body = %q, want %q", tc.path, rec.Body.String(), tc.body)
		}
	}
}

func TestHandlerWithoutMetrics(t *testing.T) {
	h := NewHandler(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	s := New(Options{Listen: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second})
	if s.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr = %q", s.Addr())
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

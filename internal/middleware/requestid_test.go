package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func TestRequestID_Generated(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequestID(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sites", nil)
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	id := GetRequestIDFromContext(dummy.ctx)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected generated UUID, got %q", id)
	}
	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Errorf("expected response header %q, got %q", id, got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequestID(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sites", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(rec, req)

	if got := GetRequestIDFromContext(dummy.ctx); got != "abc-123" {
		t.Errorf("expected 'abc-123', got '%s'", got)
	}
}

func TestGetRequestIDFromContext(t *testing.T) {
	// no value
	if empty := GetRequestIDFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string for missing id, got '%s'", empty)
	}
	// with value
	ctx := WithRequestID(context.Background(), "bob")
	if val := GetRequestIDFromContext(ctx); val != "bob" {
		t.Errorf("expected 'bob', got '%s'", val)
	}
}

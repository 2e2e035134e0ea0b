package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunwareGenerateSuccess(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var tasks []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&tasks); err != nil {
			t.Errorf("decode tasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Errorf("expected 1 task per request, got %d", len(tasks))
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprintf(w, `{"data":[{"imageURL":"https://img.example/%d.png"}]}`, n)
	}))
	defer server.Close()

	rw := NewRunware("key-123", server.URL, time.Second, testLogger())
	out := rw.Generate(context.Background(), "a poster", 3)

	if !out.GenuineSuccess() {
		t.Fatalf("expected success, got label %q", out.Label)
	}
	if len(out.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(out.Images))
	}
	if !strings.Contains(out.Label, "Runware") {
		t.Errorf("label %q should name the provider", out.Label)
	}
}

func TestRunwareClampsRequestCount(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"data":[{"imageURL":"https://img.example/x.png"}]}`)
	}))
	defer server.Close()

	rw := NewRunware("key", server.URL, time.Second, testLogger())
	out := rw.Generate(context.Background(), "poster", 10)

	if got := calls.Load(); got != runwareMaxImages {
		t.Fatalf("expected %d provider calls, got %d", runwareMaxImages, got)
	}
	if len(out.Images) > 10 {
		t.Fatalf("returned more images than requested: %d", len(out.Images))
	}
}

func TestRunwareAuthFailureAbortsBatch(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	rw := NewRunware("bad-key", server.URL, time.Second, testLogger())
	out := rw.Generate(context.Background(), "poster", 4)

	if out.GenuineSuccess() {
		t.Fatal("auth failure must not be a success")
	}
	if out.Label != "Placeholder (Runware auth failed)" {
		t.Errorf("unexpected label %q", out.Label)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("auth failure should stop after first call, saw %d", got)
	}
}

func TestRunwareStatusTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		label  string
	}{
		{http.StatusPaymentRequired, "Placeholder (Runware insufficient credits)"},
		{http.StatusTooManyRequests, "Placeholder (Runware rate limit)"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		rw := NewRunware("key", server.URL, time.Second, testLogger())
		out := rw.Generate(context.Background(), "poster", 2)
		server.Close()

		if out.Label != tc.label {
			t.Errorf("status %d: got label %q, want %q", tc.status, out.Label, tc.label)
		}
		if len(out.Images) != 0 {
			t.Errorf("status %d: expected no images", tc.status)
		}
	}
}

func TestRunwarePartialUnitsReturned(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1)%2 == 0 {
			// Every second unit fails with a generic server error.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":[{"imageURL":"https://img.example/ok.png"}]}`)
	}))
	defer server.Close()

	rw := NewRunware("key", server.URL, time.Second, testLogger())
	out := rw.Generate(context.Background(), "poster", 4)

	if !out.GenuineSuccess() {
		t.Fatalf("partial batch should still succeed, got %q", out.Label)
	}
	if len(out.Images) != 2 {
		t.Fatalf("expected 2 surviving images, got %d", len(out.Images))
	}
}

func TestRunwareUnconfigured(t *testing.T) {
	rw := NewRunware("", "http://unused", time.Second, testLogger())
	if rw.Configured() {
		t.Fatal("adapter without key must report unconfigured")
	}
	out := rw.Generate(context.Background(), "poster", 2)
	if out.GenuineSuccess() || len(out.Images) != 0 {
		t.Fatalf("unconfigured adapter returned %+v", out)
	}
}

package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string) *Client {
	c := NewClient("key", baseURL, "openrouter/auto", time.Second, testLogger())
	c.retryBackoff = time.Millisecond
	return c
}

func TestCompleteExtractsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello there  ","reasoning":"ignored"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("got %q", got)
	}
}

func TestCompleteFallsBackToReasoning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":null,"reasoning":"x"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "x" {
		t.Fatalf("expected reasoning fallback %q, got %q", "x", got)
	}
}

func TestCompleteEmptyButValidIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"","reasoning":""}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("empty content must not be a hard failure: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestCompleteNon200IsHardFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error on upstream 502")
	}
}

func TestCompleteRetriesOnceOnTimeout(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient("key", server.URL, "openrouter/auto", 30*time.Millisecond, testLogger())
	c.retryBackoff = time.Millisecond

	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected a hard error once retries are exhausted")
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestCompleteDoesNotRetryNon200(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error on upstream 502")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("a non-timeout response must not be retried, got %d attempts", got)
	}
}

func TestCompleteMessagesTakePrecedence(t *testing.T) {
	var received []Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		received = payload.Messages
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	msgs := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	_, err := newTestClient(server.URL).Complete(context.Background(), Request{
		Prompt:   "this prompt must be ignored",
		System:   "this system must be ignored",
		Messages: msgs,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(received) != len(msgs) {
		t.Fatalf("expected %d forwarded messages, got %d", len(msgs), len(received))
	}
	for i := range msgs {
		if received[i] != msgs[i] {
			t.Errorf("message %d altered: %+v", i, received[i])
		}
	}
}

func TestCompleteBuildsSystemAndUserFromPrompt(t *testing.T) {
	var received []Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		received = payload.Messages
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), Request{
		Prompt: "make a poster",
		System: "you are an art director",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	want := []Message{
		{Role: "system", Content: "you are an art director"},
		{Role: "user", Content: "make a poster"},
	}
	if len(received) != 2 || received[0] != want[0] || received[1] != want[1] {
		t.Fatalf("unexpected message list: %+v", received)
	}
}

func TestCompleteUnconfigured(t *testing.T) {
	c := NewClient("", "http://unused", "", time.Second, testLogger())
	_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteCapsMaxTokens(t *testing.T) {
	var gotMax float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		gotMax = payload["max_tokens"].(float64)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), Request{Prompt: "hi", MaxTokens: 5000})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if gotMax != maxTokensCap {
		t.Fatalf("max_tokens = %v, want %d", gotMax, maxTokensCap)
	}
}

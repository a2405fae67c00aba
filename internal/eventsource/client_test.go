package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"uptimeline/internal/models"
)

func testWindow() models.Window {
	end := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	return models.Window{Start: end.Add(-24 * time.Hour), End: end}
}

func newTestClient(baseURL, token string) *Client {
	c := NewClient(baseURL, token, time.Second)
	c.backoff = time.Millisecond
	return c
}

func TestFetchBuildsRequest(t *testing.T) {
	window := testWindow()
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		fmt.Fprint(w, `[{"timestamp":"2026-03-01T12:00:00Z","status":"offline"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "secret")
	events, err := client.Fetch(context.Background(), "router/1", window)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 1 || events[0].Status != models.StatusOffline {
		t.Fatalf("unexpected events: %v", events)
	}

	if captured == nil {
		t.Fatal("no request captured")
	}
	if !strings.HasPrefix(captured.URL.Path, "/devices/") {
		t.Errorf("unexpected path %q", captured.URL.Path)
	}
	if got := captured.URL.Query().Get("limit"); got != "1000" {
		t.Errorf("limit = %q, want 1000", got)
	}
	if got := captured.URL.Query().Get("start"); got != window.Start.Format(time.RFC3339) {
		t.Errorf("start = %q", got)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("authorization = %q", got)
	}
}

func TestFetchRejectsMalformedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"timestamp":"2026-03-01T12:00:00Z","status":"degraded"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	if _, err := client.Fetch(context.Background(), "router-1", testWindow()); err == nil {
		t.Fatal("expected error for unrecognised status")
	}
}

func TestFetchCapsRecordCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events := make([]models.StatusEvent, MaxRecords+5)
		ts := time.Date(2026, time.March, 1, 0, 30, 0, 0, time.UTC)
		for i := range events {
			events[i] = models.StatusEvent{Timestamp: ts.Add(time.Duration(i) * time.Second), Status: models.StatusOnline}
		}
		_ = json.NewEncoder(w).Encode(events)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	events, err := client.Fetch(context.Background(), "router-1", testWindow())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != MaxRecords {
		t.Fatalf("got %d events, want %d", len(events), MaxRecords)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	events, err := client.Fetch(context.Background(), "router-1", testWindow())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("unexpected events: %v", events)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	if _, err := client.Fetch(context.Background(), "router-1", testWindow()); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}
}

func TestFetchValidatesWindow(t *testing.T) {
	client := newTestClient("http://127.0.0.1:9", "")
	window := testWindow()
	window.End = window.Start
	if _, err := client.Fetch(context.Background(), "router-1", window); err == nil {
		t.Fatal("expected error for degenerate window")
	}
}

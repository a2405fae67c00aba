package state

import (
	"testing"
	"time"

	"uptimeline/internal/models"
)

func report(deviceID string, generated time.Time) models.Report {
	return models.Report{
		DeviceID:    deviceID,
		GeneratedAt: generated,
	}
}

func TestLatestAndSnapshot(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	if _, ok := store.Latest("router-1"); ok {
		t.Fatal("Latest reported data for an empty store")
	}

	store.Publish(report("router-2", now))
	store.Publish(report("router-1", now))
	store.Publish(report("router-1", now.Add(time.Minute)))

	got, ok := store.Latest("router-1")
	if !ok {
		t.Fatal("Latest missing router-1")
	}
	if !got.GeneratedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("Latest returned stale report: %v", got.GeneratedAt)
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot has %d reports, want 2", len(snapshot))
	}
	if snapshot[0].DeviceID != "router-1" || snapshot[1].DeviceID != "router-2" {
		t.Errorf("snapshot not ordered by device id: %v", snapshot)
	}
}

func TestSubscribeReceivesPublishes(t *testing.T) {
	store := NewStore()
	id, ch := store.Subscribe(4)
	defer store.Unsubscribe(id)

	published := report("router-1", time.Now().UTC())
	store.Publish(published)

	select {
	case got := <-ch:
		if got.DeviceID != "router-1" {
			t.Errorf("received report for %q", got.DeviceID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the report")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore()
	id, ch := store.Subscribe(1)
	store.Unsubscribe(id)

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("channel delivered a value after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	store.Publish(report("router-1", time.Now().UTC()))
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	store := NewStore()
	id, ch := store.Subscribe(1)
	defer store.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			store.Publish(report("router-1", time.Now().UTC()))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered update is still there to drain.
	select {
	case <-ch:
	default:
		t.Fatal("no buffered update available")
	}
}

// Package state keeps the latest derived report per device in memory and
// fans updates out to subscribers. Reports are derived values recomputed
// on every cycle, so nothing here touches disk.
package state

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"uptimeline/internal/models"
)

// Store holds the newest report per device.
type Store struct {
	mu      sync.RWMutex
	reports map[string]models.Report
	subs    map[string]chan models.Report
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		reports: make(map[string]models.Report),
		subs:    make(map[string]chan models.Report),
	}
}

// Publish replaces the stored report for its device and notifies
// subscribers. Sends never block; a subscriber that has fallen behind
// misses intermediate reports and catches up on the next one.
func (s *Store) Publish(report models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.DeviceID] = report
	// Sends stay under the lock so an Unsubscribe cannot close a channel
	// mid-send; they cannot block because every channel is buffered and
	// the full case falls through.
	for _, ch := range s.subs {
		select {
		case ch <- report:
		default:
		}
	}
}

// Latest returns the newest report for a device if one has been published.
func (s *Store) Latest(deviceID string) (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[deviceID]
	return report, ok
}

// Snapshot returns all stored reports ordered by device id.
func (s *Store) Snapshot() []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Report, 0, len(s.reports))
	for _, report := range s.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// Subscribe registers a listener for published reports. buffer must be at
// least 1 so a slow consumer drops updates instead of stalling publishers.
func (s *Store) Subscribe(buffer int) (string, <-chan models.Report) {
	if buffer < 1 {
		buffer = 1
	}
	id := uuid.NewString()
	ch := make(chan models.Report, buffer)

	s.mu.Lock()
	s.subs[id] = ch
	s.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id string) {
	s.mu.Lock()
	ch, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()

	if ok {
		close(ch)
	}
}

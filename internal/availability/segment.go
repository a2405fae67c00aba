// Package availability reconstructs a device's online/offline history.
//
// The input is a sparse, irregularly spaced log of status transitions; the
// output is a gapless sequence of labelled segments that exactly tiles the
// requested window, plus aggregate duration statistics. The computation is
// pure: no I/O, no retained state, the same inputs always produce the same
// output.
package availability

import (
	"sort"
	"time"

	"uptimeline/internal/models"
)

// Build derives the segment tiling and stats for one window.
//
// Events may arrive in any order and may fall outside the window; events
// before the window start or at/after the window end are discarded. The
// state before the first surviving event is unknowable from the log alone,
// so it is inferred: the opposite of that event's status, or online when
// the window holds no events at all. That inference is an approximation;
// an exact seed would need the most recent event before the window, which
// the event source does not supply.
func Build(window models.Window, events []models.StatusEvent) ([]models.Segment, models.AvailabilityStats, error) {
	if err := window.Validate(); err != nil {
		return nil, models.AvailabilityStats{}, err
	}

	survivors := make([]models.StatusEvent, 0, len(events))
	for _, e := range events {
		if window.Contains(e.Timestamp) {
			survivors = append(survivors, e)
		}
	}
	// Stable sort so that of two events sharing a timestamp the later one
	// in input order decides the state.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Timestamp.Before(survivors[j].Timestamp)
	})

	current := models.StatusOnline
	if len(survivors) > 0 {
		current = survivors[0].Status.Opposite()
	}

	segments := make([]models.Segment, 0, len(survivors)+1)
	cursor := window.Start
	for _, e := range survivors {
		if e.Timestamp.After(cursor) {
			segments = append(segments, models.Segment{Start: cursor, End: e.Timestamp, Status: current})
			cursor = e.Timestamp
		}
		current = e.Status
	}
	if window.End.After(cursor) {
		segments = append(segments, models.Segment{Start: cursor, End: window.End, Status: current})
	}

	return segments, computeStats(segments), nil
}

// BuildReport wraps Build into the value served to callers. The caller
// supplies generatedAt so the computation stays deterministic.
func BuildReport(deviceID string, window models.Window, events []models.StatusEvent, generatedAt time.Time) (models.Report, error) {
	segments, stats, err := Build(window, events)
	if err != nil {
		return models.Report{}, err
	}
	return models.Report{
		DeviceID:    deviceID,
		Window:      window,
		Segments:    segments,
		Stats:       stats,
		GeneratedAt: generatedAt,
	}, nil
}

func computeStats(segments []models.Segment) models.AvailabilityStats {
	var stats models.AvailabilityStats
	for _, seg := range segments {
		if seg.Status == models.StatusOnline {
			stats.OnlineDuration += seg.Duration()
		} else {
			stats.OfflineDuration += seg.Duration()
		}
	}
	total := stats.OnlineDuration + stats.OfflineDuration
	if total <= 0 {
		// Empty window: vacuously fully up.
		stats.UptimePercent = 100
		return stats
	}
	stats.UptimePercent = float64(stats.OnlineDuration) / float64(total) * 100
	return stats
}

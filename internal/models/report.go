package models

import "time"

// Device identifies a monitored entity.
type Device struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Segment is a maximal contiguous slice of a window with constant status.
type Segment struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status Status    `json:"status"`
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// AvailabilityStats aggregates segment durations for one window.
type AvailabilityStats struct {
	OnlineDuration  time.Duration `json:"online_duration"`
	OfflineDuration time.Duration `json:"offline_duration"`
	UptimePercent   float64       `json:"uptime_percent"`
}

// Report is the full derived output for one device and window. It is a
// plain value, recomputed from scratch on every run and never persisted.
type Report struct {
	DeviceID    string            `json:"device_id"`
	Window      Window            `json:"window"`
	Segments    []Segment         `json:"segments"`
	Stats       AvailabilityStats `json:"stats"`
	GeneratedAt time.Time         `json:"generated_at"`
}

package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is the state a device transitioned into at a point in time.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ParseStatus validates a raw wire value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOnline:
		return StatusOnline, nil
	case StatusOffline:
		return StatusOffline, nil
	default:
		return "", fmt.Errorf("unrecognised status %q", raw)
	}
}

// Opposite returns the other status.
func (s Status) Opposite() Status {
	if s == StatusOnline {
		return StatusOffline
	}
	return StatusOnline
}

// StatusEvent records a single transition into Status at Timestamp.
type StatusEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Epoch values at or above this are interpreted as milliseconds; dashboard
// APIs commonly emit JavaScript millisecond epochs, everything else sends
// seconds.
const millisecondEpochMin = int64(1e12)

// UnmarshalJSON accepts timestamps as RFC 3339 strings or epoch numbers
// and rejects malformed records before they can reach the engine.
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var wire struct {
		Timestamp json.RawMessage `json:"timestamp"`
		Status    string          `json:"status"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode status event: %w", err)
	}
	if len(wire.Timestamp) == 0 {
		return fmt.Errorf("status event missing timestamp")
	}

	ts, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return err
	}
	status, err := ParseStatus(wire.Status)
	if err != nil {
		return err
	}

	e.Timestamp = ts
	e.Status = status
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if raw[0] == '"' {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		return ts, nil
	}

	epoch, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse epoch timestamp %q: %w", string(raw), err)
	}
	millis := int64(epoch * 1000)
	if int64(epoch) >= millisecondEpochMin {
		millis = int64(epoch)
	}
	return time.UnixMilli(millis).UTC(), nil
}

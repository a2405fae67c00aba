package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrDegenerateWindow marks a window whose start does not precede its end.
var ErrDegenerateWindow = errors.New("window start must precede window end")

// Window is the half-open interval [Start, End) a timeline is drawn over.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects degenerate windows.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return ErrDegenerateWindow
	}
	return nil
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Range is one of the supported timeline spans.
type Range string

const (
	RangeDay   Range = "24h"
	RangeWeek  Range = "7d"
	RangeMonth Range = "30d"
)

var rangeDurations = map[Range]time.Duration{
	RangeDay:   24 * time.Hour,
	RangeWeek:  7 * 24 * time.Hour,
	RangeMonth: 30 * 24 * time.Hour,
}

// Ranges lists the supported range tokens in ascending span order.
func Ranges() []Range {
	return []Range{RangeDay, RangeWeek, RangeMonth}
}

// ParseRange validates a raw range token.
func ParseRange(raw string) (Range, error) {
	r := Range(raw)
	if _, ok := rangeDurations[r]; !ok {
		return "", fmt.Errorf("unsupported range %q", raw)
	}
	return r, nil
}

// Duration returns the span the range selects.
func (r Range) Duration() time.Duration {
	return rangeDurations[r]
}

// WindowEnding maps the range to the window [end-span, end).
func (r Range) WindowEnding(end time.Time) Window {
	return Window{Start: end.Add(-r.Duration()), End: end}
}

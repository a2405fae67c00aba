// Package scheduler drives availability recomputation. It owns the
// currently selected range and, for each cycle, takes an immutable event
// snapshot per device, runs the engine and publishes the result.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"uptimeline/internal/availability"
	"uptimeline/internal/models"
	"uptimeline/internal/state"
)

// ErrUnknownDevice is returned for device ids outside the configured set.
var ErrUnknownDevice = errors.New("unknown device")

// Source supplies the status-change log for one device and window.
type Source interface {
	Fetch(ctx context.Context, deviceID string, window models.Window) ([]models.StatusEvent, error)
}

// Scheduler periodically recomputes availability reports. A range change
// or refresh tick supersedes any in-flight cycle: the old fetch context
// is cancelled and its results, if any, are discarded before publishing.
type Scheduler struct {
	interval time.Duration
	devices  []models.Device
	source   Source
	store    *state.Store
	now      func() time.Time

	mu         sync.Mutex
	rng        models.Range
	generation uint64
	inFlight   context.CancelFunc

	ctx     context.Context
	cancel  context.CancelFunc
	trigger chan struct{}
	done    chan struct{}
}

// New creates a scheduler over the configured devices.
func New(interval time.Duration, rng models.Range, devices []models.Device, source Source, store *state.Store) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		interval: interval,
		devices:  devices,
		source:   source,
		store:    store,
		now:      time.Now,
		rng:      rng,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Devices returns the configured device set.
func (s *Scheduler) Devices() []models.Device {
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Range returns the currently selected range.
func (s *Scheduler) Range() models.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// SetRange switches the active range and triggers an immediate cycle.
func (s *Scheduler) SetRange(rng models.Range) {
	s.mu.Lock()
	s.rng = rng
	s.mu.Unlock()

	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start launches the refresh loop in a goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop cancels the loop and any in-flight cycle, then waits for exit.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.trigger:
			s.refresh()
		case <-s.ctx.Done():
			return
		}
	}
}

// refresh starts a new cycle, superseding any in-flight one.
func (s *Scheduler) refresh() {
	s.mu.Lock()
	if s.inFlight != nil {
		s.inFlight()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inFlight = cancel
	s.generation++
	gen := s.generation
	rng := s.rng
	s.mu.Unlock()

	go func() {
		defer cancel()
		if err := s.cycle(ctx, gen, rng); err != nil && ctx.Err() == nil {
			log.Printf("availability refresh: %v", err)
		}
	}()
}

// RunOnce executes a single synchronous cycle for the current range.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	rng := s.rng
	s.mu.Unlock()

	return s.cycle(ctx, gen, rng)
}

func (s *Scheduler) cycle(ctx context.Context, gen uint64, rng models.Range) error {
	window := rng.WindowEnding(s.now().UTC())

	var lastErr error
	for _, device := range s.devices {
		events, err := s.source.Fetch(ctx, device.ID, window)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The previous report stays on display until a fetch succeeds.
			log.Printf("fetch status log for %s: %v", device.ID, err)
			lastErr = err
			continue
		}

		report, err := availability.BuildReport(device.ID, window, events, s.now().UTC())
		if err != nil {
			lastErr = err
			continue
		}
		if !s.publishIfCurrent(gen, report) {
			// Superseded mid-cycle; a newer computation owns the output.
			return ctx.Err()
		}
	}
	return lastErr
}

// publishIfCurrent publishes under the scheduler lock. Checking the
// generation and publishing must be one atomic step: released between
// them, a superseding cycle could publish first and the stale report
// would land last.
func (s *Scheduler) publishIfCurrent(gen uint64, report models.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	s.store.Publish(report)
	return true
}

// Compute runs an on-demand fetch-and-compute for an arbitrary range
// without touching the published reports.
func (s *Scheduler) Compute(ctx context.Context, deviceID string, rng models.Range) (models.Report, error) {
	if !s.knownDevice(deviceID) {
		return models.Report{}, ErrUnknownDevice
	}

	window := rng.WindowEnding(s.now().UTC())
	events, err := s.source.Fetch(ctx, deviceID, window)
	if err != nil {
		return models.Report{}, err
	}
	return availability.BuildReport(deviceID, window, events, s.now().UTC())
}

func (s *Scheduler) knownDevice(deviceID string) bool {
	for _, device := range s.devices {
		if device.ID == deviceID {
			return true
		}
	}
	return false
}

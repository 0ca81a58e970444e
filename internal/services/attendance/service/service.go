// Package service implements attendance operations: the default-time setting,
// the roster, sessions with their opt-out window, and the rollover sweep.
//
// A Service is built once per process from a store, a lateness reporter and a
// clock; handlers and commands call it instead of touching storage directly.
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"

	"github.com/ignitehq/attendance/internal/platform/id"
	"github.com/ignitehq/attendance/internal/platform/timeouts"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/lateness"
	"github.com/ignitehq/attendance/internal/services/attendance/observability"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

var tracer = otel.Tracer("github.com/ignitehq/attendance/internal/services/attendance/service")

// Config carries scheduling settings.
type Config struct {
	// Zone is the civil zone for dates and times. Nil uses Australia/Sydney.
	Zone *time.Location
	// Weekday is the day the sweep schedules successor sessions on.
	Weekday time.Weekday
	// SweepLeaseTTL bounds how long a crashed sweep blocks others.
	SweepLeaseTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetrics records operations on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service runs attendance operations.
type Service struct {
	store    storage.Store
	reporter lateness.Reporter
	clock    clockwork.Clock
	metrics  *observability.Metrics
	newID    func() (string, error)

	zone     *time.Location
	weekday  time.Weekday
	leaseTTL time.Duration

	sweepMu sync.Mutex
}

// New builds a Service.
func New(store storage.Store, reporter lateness.Reporter, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("attendance store is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("lateness reporter is required")
	}

	zone := cfg.Zone
	if zone == nil {
		loaded, err := domain.LoadZone("")
		if err != nil {
			return nil, err
		}
		zone = loaded
	}
	leaseTTL := cfg.SweepLeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = timeouts.SweepLease
	}

	s := &Service{
		store:    store,
		reporter: reporter,
		clock:    clockwork.NewRealClock(),
		newID:    id.NewID,
		zone:     zone,
		weekday:  cfg.Weekday,
		leaseTTL: leaseTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Zone returns the civil zone used for schedules.
func (s *Service) Zone() *time.Location {
	return s.zone
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

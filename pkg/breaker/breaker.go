// Package breaker provides resilience for store backends.
// Wraps sony/gobreaker so a data directory that starts failing trips the
// circuit and surfaces I/O failures fast instead of retrying every scan.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/store"
)

// State represents the circuit breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds circuit breaker configuration
type Config struct {
	// Name identifies the circuit breaker
	Name string
	// MaxRequests is max requests allowed in half-open state
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts in closed state
	Interval time.Duration
	// Timeout is how long to wait before transitioning from open to half-open
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold uint32
}

// DefaultConfig returns defaults suitable for local table files.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 3,
	}
}

// CircuitBreaker wraps gobreaker with observability
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
	tracer trace.Tracer

	currentState State
	stateMu      sync.RWMutex
}

// New creates a new circuit breaker
func New(cfg Config, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := &CircuitBreaker{
		name:         cfg.Name,
		logger:       logger,
		tracer:       otel.Tracer("circuit-breaker"),
		currentState: StateClosed,
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cb.onStateChange(from, to)
		},
		IsSuccessful: func(err error) bool {
			// Contract errors are the caller's problem, not a sign of a
			// failing backend; only infrastructure errors count.
			return err == nil ||
				errors.Is(err, store.ErrNotFound) ||
				errors.Is(err, store.ErrInvalidFormat)
		},
	}

	cb.cb = gobreaker.NewCircuitBreaker(settings)
	return cb
}

// Execute runs a function through the circuit breaker
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	ctx, span := c.tracer.Start(ctx, "circuit_breaker_execute",
		trace.WithAttributes(
			attribute.String("breaker_name", c.name),
			attribute.String("state", string(c.GetState())),
		))
	defer span.End()

	result, err := c.cb.Execute(fn)
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			span.SetAttributes(attribute.Bool("circuit_open", true))
			return nil, fmt.Errorf("table %s unavailable: %w", c.name, err)
		}
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// GetState returns the current circuit breaker state
func (c *CircuitBreaker) GetState() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.currentState
}

// IsOpen returns true if the circuit is open
func (c *CircuitBreaker) IsOpen() bool {
	return c.GetState() == StateOpen
}

// Counts returns the current counts from the circuit breaker
func (c *CircuitBreaker) Counts() gobreaker.Counts {
	return c.cb.Counts()
}

// onStateChange handles state transitions
func (c *CircuitBreaker) onStateChange(from, to gobreaker.State) {
	fromState := mapState(from)
	toState := mapState(to)

	c.stateMu.Lock()
	c.currentState = toState
	c.stateMu.Unlock()

	c.logger.Warn("circuit breaker state changed",
		zap.String("breaker", c.name),
		zap.String("from", string(fromState)),
		zap.String("to", string(toState)))
}

// mapState converts gobreaker.State to our State type
func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Manager manages one circuit breaker per table
type Manager struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewManager creates a circuit breaker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

// GetOrCreate returns an existing breaker or creates a new one
func (m *Manager) GetOrCreate(name string) *CircuitBreaker {
	m.mu.RLock()
	if cb, ok := m.breakers[name]; ok {
		m.mu.RUnlock()
		return cb
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}

	cb := New(DefaultConfig(name), m.logger)
	m.breakers[name] = cb
	return cb
}

// HealthStatus reports one breaker's condition.
type HealthStatus struct {
	Name     string
	State    State
	Requests uint32
	Failures uint32
	Healthy  bool
}

// GetHealthStatus returns health status for all circuit breakers
func (m *Manager) GetHealthStatus() []HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var statuses []HealthStatus
	for name, cb := range m.breakers {
		counts := cb.Counts()
		statuses = append(statuses, HealthStatus{
			Name:     name,
			State:    cb.GetState(),
			Requests: counts.Requests,
			Failures: counts.TotalFailures,
			Healthy:  !cb.IsOpen(),
		})
	}
	return statuses
}

// WrapStore guards every table of s with its own breaker.
func WrapStore(s store.Store, m *Manager) store.Store {
	return &guardedStore{inner: s, manager: m}
}

type guardedStore struct {
	inner   store.Store
	manager *Manager
}

func (s *guardedStore) Table(name string) store.Table {
	return &guardedTable{
		inner: s.inner.Table(name),
		cb:    s.manager.GetOrCreate(name),
	}
}

func (s *guardedStore) Close() error { return s.inner.Close() }

type guardedTable struct {
	inner store.Table
	cb    *CircuitBreaker
}

func (t *guardedTable) ReadAll(ctx context.Context) ([]store.Record, error) {
	res, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return t.inner.ReadAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]store.Record), nil
}

func (t *guardedTable) Find(ctx context.Context, key string) (store.Record, error) {
	res, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return t.inner.Find(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return res.(store.Record), nil
}

func (t *guardedTable) Append(ctx context.Context, rec store.Record) error {
	_, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return nil, t.inner.Append(ctx, rec)
	})
	return err
}

func (t *guardedTable) Update(ctx context.Context, key string, rec store.Record) error {
	_, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return nil, t.inner.Update(ctx, key, rec)
	})
	return err
}

func (t *guardedTable) UpdateField(ctx context.Context, key string, index int, value string) error {
	_, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return nil, t.inner.UpdateField(ctx, key, index, value)
	})
	return err
}

func (t *guardedTable) Delete(ctx context.Context, key string) error {
	_, err := t.cb.Execute(ctx, func() (interface{}, error) {
		return nil, t.inner.Delete(ctx, key)
	})
	return err
}

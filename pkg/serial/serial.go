// Package serial provides a single-writer coordinator for store mutations.
// The record files have no locking discipline of their own, so every mutating
// call is funneled through one goroutine; readers go straight to the store.
package serial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/store"
)

// ErrStopped is returned by Do once the coordinator has shut down.
var ErrStopped = errors.New("coordinator stopped")

// Op is a mutation executed on the writer goroutine.
type Op func(ctx context.Context) error

// Config holds coordinator configuration.
type Config struct {
	// QueueSize is the size of the pending mutation queue.
	QueueSize int
	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns defaults sized for a single interactive session.
func DefaultConfig() Config {
	return Config{
		QueueSize:       64,
		ShutdownTimeout: 10 * time.Second,
	}
}

type request struct {
	name  string
	ctx   context.Context
	op    Op
	reply chan error
}

// Coordinator owns all mutation calls against the store.
type Coordinator struct {
	config Config
	logger *zap.Logger

	reqChan chan *request
	wg      sync.WaitGroup

	// mu guards closed and keeps reqChan open while a submission is in
	// flight, so Stop never closes the channel under a sender.
	mu     sync.Mutex
	closed bool

	// Counters
	opsSubmitted int64
	opsCompleted int64
	opsFailed    int64
}

// New creates a coordinator.
func New(cfg Config, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	return &Coordinator{
		config:  cfg,
		logger:  logger,
		reqChan: make(chan *request, cfg.QueueSize),
	}
}

// Start launches the writer goroutine.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.writer()
	c.logger.Info("single-writer coordinator started",
		zap.Int("queue_size", c.config.QueueSize))
}

// Do runs op on the writer goroutine and waits for its result. After Stop
// it returns ErrStopped.
func (c *Coordinator) Do(ctx context.Context, name string, op Op) error {
	req := &request{name: name, ctx: ctx, op: op, reply: make(chan error, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrStopped
	}
	select {
	case c.reqChan <- req:
		atomic.AddInt64(&c.opsSubmitted, 1)
	case <-ctx.Done():
		c.mu.Unlock()
		return ctx.Err()
	}
	c.mu.Unlock()

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts the coordinator down, draining queued mutations.
// Safe to call more than once.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.reqChan)
	c.mu.Unlock()

	c.logger.Info("stopping coordinator")

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("coordinator stopped gracefully")
	case <-time.After(c.config.ShutdownTimeout):
		c.logger.Warn("coordinator shutdown timed out")
	}
	return nil
}

// Stats returns submitted, completed and failed mutation counts.
func (c *Coordinator) Stats() (submitted, completed, failed int64) {
	return atomic.LoadInt64(&c.opsSubmitted),
		atomic.LoadInt64(&c.opsCompleted),
		atomic.LoadInt64(&c.opsFailed)
}

// writer is the single goroutine allowed to mutate the store.
func (c *Coordinator) writer() {
	defer c.wg.Done()

	for req := range c.reqChan {
		err := req.op(req.ctx)
		if err != nil {
			atomic.AddInt64(&c.opsFailed, 1)
			c.logger.Debug("mutation failed",
				zap.String("op", req.name),
				zap.Error(err))
		} else {
			atomic.AddInt64(&c.opsCompleted, 1)
		}
		req.reply <- err
	}
}

// WrapStore returns a store whose mutating table calls are routed through
// the coordinator. Reads bypass it.
func WrapStore(s store.Store, c *Coordinator) store.Store {
	return &serialStore{inner: s, coord: c}
}

type serialStore struct {
	inner store.Store
	coord *Coordinator
}

func (s *serialStore) Table(name string) store.Table {
	return &serialTable{inner: s.inner.Table(name), name: name, coord: s.coord}
}

func (s *serialStore) Close() error { return s.inner.Close() }

type serialTable struct {
	inner store.Table
	name  string
	coord *Coordinator
}

func (t *serialTable) ReadAll(ctx context.Context) ([]store.Record, error) {
	return t.inner.ReadAll(ctx)
}

func (t *serialTable) Find(ctx context.Context, key string) (store.Record, error) {
	return t.inner.Find(ctx, key)
}

func (t *serialTable) Append(ctx context.Context, rec store.Record) error {
	return t.coord.Do(ctx, t.name+"_append", func(ctx context.Context) error {
		return t.inner.Append(ctx, rec)
	})
}

func (t *serialTable) Update(ctx context.Context, key string, rec store.Record) error {
	return t.coord.Do(ctx, t.name+"_update", func(ctx context.Context) error {
		return t.inner.Update(ctx, key, rec)
	})
}

func (t *serialTable) UpdateField(ctx context.Context, key string, index int, value string) error {
	return t.coord.Do(ctx, t.name+"_update_field", func(ctx context.Context) error {
		return t.inner.UpdateField(ctx, key, index, value)
	})
}

func (t *serialTable) Delete(ctx context.Context, key string) error {
	return t.coord.Do(ctx, t.name+"_delete", func(ctx context.Context) error {
		return t.inner.Delete(ctx, key)
	})
}

// Package stepthread runs one stepper on a dedicated goroutine and feeds its
// samples into a history.Ring.
//
// The goroutine is the ring's only writer. Start blocks until the first
// sample has been appended, so a Running controller always has a non-empty
// buffer. Stop raises an atomic flag, closes the stop channel and joins the
// goroutine with a bounded wait.
package stepthread

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/logger"
	"github.com/san-kum/attractors/internal/metrics"
	"github.com/san-kum/attractors/internal/stepper"
	"go.uber.org/zap"
)

const (
	DefaultJoinTimeout = 2 * time.Second

	// appended samples are flushed to the metrics counter in batches
	flushEvery = 4096

	catDivergence = "divergence"
	catReseed     = "reseed"
	catJoin       = "join"
	catFull       = "full"
)

var (
	ErrBusy           = errors.New("stepthread: previous step thread has not exited")
	ErrJoinTimeout    = errors.New("stepthread: step thread did not exit within join timeout")
	ErrAlreadyRunning = errors.New("stepthread: already running")
	ErrNoFactory      = errors.New("stepthread: no stepper factory")
)

// Source supplies the buffer shape for a new thread. Emitters implement it.
type Source interface {
	BufferCapacity() int
	FullPolicy() history.FullPolicy
}

// Factory builds the stepper for each new thread.
type Factory func() (*stepper.Stepper, error)

type Config struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	JoinTimeout time.Duration
}

type run struct {
	quit atomic.Bool
	stop chan struct{}
	done chan struct{}
}

type Controller struct {
	// mu serializes Start, Stop and SetFactory.
	mu      sync.Mutex
	factory Factory
	run     *run

	state  stateCell
	ring   atomic.Pointer[history.Ring]
	steps  atomic.Uint64
	halted atomic.Bool

	errMu   sync.Mutex
	lastErr error

	log         *zap.Logger
	metrics     *metrics.Metrics
	limiter     *catrate.Limiter
	joinTimeout time.Duration
}

func New(factory Factory, cfg Config) *Controller {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	return &Controller{
		factory:     factory,
		log:         logger.OrNop(cfg.Logger).Named("stepthread"),
		metrics:     cfg.Metrics,
		joinTimeout: cfg.JoinTimeout,
		limiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		}),
	}
}

// SetFactory replaces the stepper factory used by the next Start.
func (c *Controller) SetFactory(f Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.state.Load(); st == Running || st == Initializing {
		return fmt.Errorf("%w: cannot change stepper while %s", ErrAlreadyRunning, st)
	}
	c.factory = f
	return nil
}

// Start builds a fresh ring sized by src, spawns the step goroutine and
// waits for the first sample. Initialization failures are returned here and
// leave the controller Stopped with no goroutine.
func (c *Controller) Start(src Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reapLocked()
	switch st := c.state.Load(); st {
	case Uninitialized, Stopped:
	case Running:
		return ErrAlreadyRunning
	default:
		return fmt.Errorf("%w (state %s)", ErrBusy, st)
	}
	if c.factory == nil {
		return ErrNoFactory
	}

	began := time.Now()
	c.state.Store(Initializing)
	c.ring.Store(nil)
	c.halted.Store(false)
	c.setErr(nil)

	ring, err := history.New(src.BufferCapacity(), src.FullPolicy())
	if err != nil {
		c.state.Store(Stopped)
		return fmt.Errorf("bind buffer: %w", err)
	}
	st, err := c.factory()
	if err != nil {
		c.state.Store(Stopped)
		return fmt.Errorf("build stepper: %w", err)
	}

	r := &run{stop: make(chan struct{}), done: make(chan struct{})}
	ready := make(chan error, 1)
	go c.loop(r, ring, st, ready)

	if err := <-ready; err != nil {
		<-r.done
		c.state.Store(Stopped)
		return fmt.Errorf("first sample: %w", err)
	}

	c.run = r
	c.ring.Store(ring)
	c.state.Store(Running)
	c.metrics.RunningThread.Set(1)
	c.metrics.StartSeconds.Observe(time.Since(began).Seconds())
	c.log.Debug("step thread running",
		zap.Int("capacity", ring.Capacity()),
		zap.Stringer("policy", ring.Policy()),
		zap.Stringer("divergence", st.Policy()),
	)
	return nil
}

// Stop signals the goroutine and joins it. On a timeout the controller
// stays Stopping and ErrJoinTimeout is returned; calling Stop again retries
// the join. Stop on a controller that is not running is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Load() {
	case Running:
		c.state.Store(Stopping)
		c.run.quit.Store(true)
		close(c.run.stop)
	case Stopping:
	default:
		return nil
	}
	return c.joinLocked()
}

func (c *Controller) joinLocked() error {
	began := time.Now()
	timer := time.NewTimer(c.joinTimeout)
	defer timer.Stop()

	select {
	case <-c.run.done:
		c.metrics.JoinSeconds.Observe(time.Since(began).Seconds())
		c.finishLocked()
		return nil
	case <-timer.C:
		c.metrics.JoinTimeouts.Inc()
		if _, ok := c.limiter.Allow(catJoin); ok {
			c.log.Error("step thread join timed out",
				zap.Duration("timeout", c.joinTimeout),
				zap.Uint64("steps", c.steps.Load()),
			)
		}
		return ErrJoinTimeout
	}
}

// reapLocked completes a Stopping controller whose goroutine has exited
// since a timed out join.
func (c *Controller) reapLocked() {
	if c.state.Load() != Stopping {
		return
	}
	select {
	case <-c.run.done:
		c.finishLocked()
	default:
	}
}

func (c *Controller) finishLocked() {
	c.run = nil
	c.state.Store(Stopped)
	c.metrics.RunningThread.Set(0)
	c.log.Debug("step thread stopped", zap.Uint64("steps", c.steps.Load()))
}

func (c *Controller) loop(r *run, ring *history.Ring, st *stepper.Stepper, ready chan<- error) {
	defer close(r.done)

	first, err := st.Step()
	if err != nil {
		ready <- err
		return
	}
	ring.Append(first)
	c.steps.Add(1)
	ready <- nil

	pending := uint64(1)
	defer func() { c.metrics.Appends.Add(float64(pending)) }()

	for !r.quit.Load() {
		s, err := st.Step()
		if err != nil {
			c.metrics.Divergences.Inc()
			if st.Policy() == stepper.Reseed {
				st.Reset()
				c.metrics.Reseeds.Inc()
				c.diag(catReseed, "trajectory reseeded after divergence", err)
				continue
			}
			c.halt(err)
			c.diag(catDivergence, "trajectory diverged, step thread halted", err)
			<-r.stop
			return
		}

		if !ring.Append(s) {
			c.metrics.Rejected.Inc()
			c.halt(nil)
			c.diag(catFull, "buffer full, step thread halted", nil)
			<-r.stop
			return
		}
		c.steps.Add(1)

		pending++
		if pending == flushEvery {
			c.metrics.Appends.Add(flushEvery)
			pending = 0
		}
	}
}

func (c *Controller) halt(err error) {
	c.halted.Store(true)
	if err != nil {
		c.setErr(err)
	}
}

func (c *Controller) diag(category, msg string, err error) {
	if _, ok := c.limiter.Allow(category); !ok {
		return
	}
	fields := []zap.Field{zap.Uint64("steps", c.steps.Load())}
	var se *dynamo.StepError
	if errors.As(err, &se) {
		fields = append(fields, zap.Uint64("step", se.Step), zap.Float64("t", se.Time))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		c.log.Warn(msg, fields...)
		return
	}
	c.log.Info(msg, fields...)
}

func (c *Controller) setErr(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

// Buffer returns the ring of the current or most recent thread, or nil
// before the first successful Start.
func (c *Controller) Buffer() *history.Ring { return c.ring.Load() }

func (c *Controller) State() ThreadState { return c.state.Load() }

// Steps is the total number of samples appended across all threads.
func (c *Controller) Steps() uint64 { return c.steps.Load() }

// Halted reports whether the current thread stopped producing samples on
// its own, because of a divergence or a full stop-when-full buffer.
func (c *Controller) Halted() bool { return c.halted.Load() }

// Err returns the divergence that halted the current thread, if any.
func (c *Controller) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// Package particles is the orchestrator tying one emitter, one step thread
// and one render context together.
//
// Lifecycle operations (build, change, delete, settings, reshape) take the
// write lock and are therefore serialized against each other and against
// rendering. Render paths take the read lock, so they never observe an
// emitter that is half built or half torn down.
package particles

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/logger"
	"github.com/san-kum/attractors/internal/metrics"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/stepthread"
	"go.uber.org/zap"
)

var (
	ErrNoEmitter     = errors.New("particles: no emitter")
	ErrEmitterExists = errors.New("particles: emitter already built")
	ErrNoSamples     = errors.New("particles: buffer is empty")
)

type Config struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	JoinTimeout time.Duration

	// Stepper builds the trajectory for every thread the system starts.
	Stepper  stepthread.Factory
	Settings emitter.Settings
}

type System struct {
	mu       sync.RWMutex
	ctx      *render.Context
	em       emitter.Emitter
	settings emitter.Settings
	thread   *stepthread.Controller

	// frameMu serializes frames; emitters are single-threaded.
	frameMu sync.Mutex

	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(ctx *render.Context, cfg Config) *System {
	if ctx == nil {
		ctx = render.NewContext(0, 0)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.Settings == (emitter.Settings{}) {
		cfg.Settings = emitter.DefaultSettings()
	}
	log := logger.OrNop(cfg.Logger)
	return &System{
		ctx:      ctx,
		settings: cfg.Settings,
		thread: stepthread.New(cfg.Stepper, stepthread.Config{
			Logger:      log,
			Metrics:     cfg.Metrics,
			JoinTimeout: cfg.JoinTimeout,
		}),
		log:     log.Named("particles"),
		metrics: cfg.Metrics,
	}
}

// BuildEmitter creates an emitter of the given engine with the current
// settings, builds its render resources and starts the step thread bound to
// it. On error nothing is left running.
func (s *System) BuildEmitter(engine emitter.Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked(engine, s.settings)
}

func (s *System) buildLocked(engine emitter.Engine, settings emitter.Settings) error {
	if s.em != nil {
		return ErrEmitterExists
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	em, err := emitter.New(engine, emitter.DefaultSettings())
	if err != nil {
		return err
	}
	if err := em.SetSizeCircularBuffer(settings.Size); err != nil {
		return err
	}
	if err := em.SetStopFull(settings.StopFull); err != nil {
		return err
	}
	if err := em.SetRestartFull(settings.RestartFull); err != nil {
		return err
	}

	if err := em.Build(s.ctx); err != nil {
		return fmt.Errorf("build %s emitter: %w", engine, err)
	}
	em.Attach()
	if err := s.thread.Start(em); err != nil {
		em.Detach()
		em.Release()
		return fmt.Errorf("start step thread: %w", err)
	}

	s.em = em
	s.settings = settings
	s.metrics.EmitterBuilds.WithLabelValues(engine.String()).Inc()
	s.log.Info("emitter built",
		zap.Stringer("engine", engine),
		zap.Stringer("id", em.ID()),
		zap.Int("size", settings.Size),
		zap.Bool("stop_full", settings.StopFull),
		zap.Bool("restart_full", settings.RestartFull),
	)
	return nil
}

// DeleteEmitter stops and joins the step thread, then releases the
// emitter. A join timeout is returned and the emitter is kept.
func (s *System) DeleteEmitter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked()
}

func (s *System) deleteLocked() error {
	if s.em == nil {
		return nil
	}
	if err := s.thread.Stop(); err != nil {
		return fmt.Errorf("stop step thread: %w", err)
	}
	s.em.Detach()
	s.em.Release()
	s.log.Debug("emitter released", zap.Stringer("engine", s.em.Engine()))
	s.em = nil
	s.metrics.Particles.Set(0)
	return nil
}

// ChangeEmitter replaces the emitter with one of another engine, carrying
// over size, stop-full and restart settings.
func (s *System) ChangeEmitter(engine emitter.Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings
	if s.em != nil {
		settings = s.em.Settings()
	}
	if err := s.deleteLocked(); err != nil {
		return err
	}
	return s.buildLocked(engine, settings)
}

// SetSettings applies new buffer settings. A live emitter is rebuilt with
// the same engine.
func (s *System) SetSettings(settings emitter.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.em == nil {
		s.settings = settings
		return nil
	}
	engine := s.em.Engine()
	if err := s.deleteLocked(); err != nil {
		return err
	}
	return s.buildLocked(engine, settings)
}

// SetStepper swaps the trajectory source, restarting a live emitter.
func (s *System) SetStepper(f stepthread.Factory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.em == nil {
		return s.thread.SetFactory(f)
	}
	engine, settings := s.em.Engine(), s.em.Settings()
	if err := s.deleteLocked(); err != nil {
		return err
	}
	if err := s.thread.SetFactory(f); err != nil {
		return err
	}
	return s.buildLocked(engine, settings)
}

func (s *System) SetMode(m render.Mode) {
	s.mu.Lock()
	s.ctx.Mode = m
	s.mu.Unlock()
}

func (s *System) SetCockpit(tf render.TFSettings) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.ctx.Cockpit = tf
	s.mu.Unlock()
	return nil
}

func (s *System) Mode() render.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx.Mode
}

func (s *System) Cockpit() render.TFSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx.Cockpit
}

// UpdateMain edits the main camera under the write lock.
func (s *System) UpdateMain(fn func(*render.Transform)) {
	s.mu.Lock()
	fn(&s.ctx.Main)
	s.mu.Unlock()
}

// OnReshape follows a framebuffer resize. Zero dimensions, as reported for
// a minimized window, are ignored.
func (s *System) OnReshape(w, h int) {
	if w == 0 || h == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.Resize(w, h)
}

// RenderSingle draws one frame with the main camera.
func (s *System) RenderSingle() (render.Texture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.em == nil {
		return 0, ErrNoEmitter
	}
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	ctx, em := s.ctx, s.em
	ring := s.thread.Buffer()
	vp := ctx.Viewport()

	em.PreRenderEvents(ring)
	var tex render.Texture
	if ctx.Mode != render.Both {
		set := ctx.Active()
		tex = draw(set, em.Particles(), ctx.Main, vp)
		tex = set.Post(tex)
	} else {
		bb := draw(ctx.Billboard, em.Particles(), ctx.Main, vp)
		em.BufferRendered()
		em.PreRenderEvents(ring)
		pt := draw(ctx.Points, em.Particles(), ctx.Main, vp)

		bb = glowAfterFXAA(ctx.Billboard, bb)
		pt = glowAfterFXAA(ctx.Points, pt)
		tex = pt
		if ctx.Merge != nil {
			tex = ctx.Merge.Merge(bb, pt)
		}
	}
	s.finishFrame(em, "single")
	return tex, nil
}

// RenderTF draws the cockpit view: a camera riding the trajectory between
// the newest sample and one Tail of the way back through the buffer, with
// an optional picture-in-picture of the main view.
func (s *System) RenderTF() (render.Texture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.em == nil {
		return 0, ErrNoEmitter
	}
	ring := s.thread.Buffer()
	if ring == nil || ring.Len() == 0 {
		return 0, ErrNoSamples
	}
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	ctx, em := s.ctx, s.em
	cp := ctx.Cockpit
	w, h := ctx.Width, ctx.Height

	em.PreRenderEvents(ring)

	head, tail := cockpitSamples(ring, cp)
	cockpit := cp.Transform(head.Vec3(), tail.Vec3(), w, h, ctx.Main.Far)

	full, pip := cockpit, ctx.Main
	if cp.InvertPiP {
		full, pip = ctx.Main, cockpit
	}

	set := ctx.Active()
	tex := draw(set, em.Particles(), full, ctx.Viewport())
	tex = glow(set, tex)

	ctx.SetUpdate()
	if cp.PiP != render.NoPiP {
		tex = draw(set, em.Particles(), pip, cp.Viewport(w, h))
		tex = glow(set, tex)
	}
	if set.FXAA != nil {
		tex = set.FXAA.Apply(tex)
	}

	s.finishFrame(em, "cockpit")
	return tex, nil
}

// cockpitSamples returns the newest sample and the one TailIndex positions
// behind it.
func cockpitSamples(ring *history.Ring, cp render.TFSettings) (head, tail dynamo.Sample) {
	head, _ = ring.Current()
	tail, _ = ring.At(cp.TailIndex(ring.QueueSize()))
	return head, tail
}

func (s *System) finishFrame(em emitter.Emitter, view string) {
	s.metrics.Particles.Set(float64(len(em.Particles())))
	em.PostRenderEvents()
	s.metrics.Frames.WithLabelValues(view).Inc()
}

func draw(set render.PassSet, particles []dynamo.Sample, view render.Transform, vp render.Viewport) render.Texture {
	if set.Particles == nil {
		return 0
	}
	return set.Particles.Render(particles, view, vp)
}

func glow(set render.PassSet, tex render.Texture) render.Texture {
	if set.Glow == nil {
		return tex
	}
	return set.Glow.Apply(tex)
}

func glowAfterFXAA(set render.PassSet, tex render.Texture) render.Texture {
	if set.FXAA != nil {
		tex = set.FXAA.Apply(tex)
	}
	return glow(set, tex)
}

// Close deletes the emitter and stops the thread.
func (s *System) Close() error { return s.DeleteEmitter() }

// Engine reports the current emitter engine.
func (s *System) Engine() (emitter.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.em == nil {
		return 0, false
	}
	return s.em.Engine(), true
}

func (s *System) Settings() emitter.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.em != nil {
		return s.em.Settings()
	}
	return s.settings
}

// Buffer is the ring of the current or most recent step thread.
func (s *System) Buffer() *history.Ring { return s.thread.Buffer() }

func (s *System) Thread() *stepthread.Controller { return s.thread }

// Particles copies the set of the last rendered frame.
func (s *System) Particles() []dynamo.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.em == nil {
		return nil
	}
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return append([]dynamo.Sample(nil), s.em.Particles()...)
}

// Size reports the framebuffer dimensions.
func (s *System) Size() (w, h int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx.Width, s.ctx.Height
}

// TakeUpdate reports and clears the context update flag.
func (s *System) TakeUpdate() bool { return s.ctx.TakeUpdate() }

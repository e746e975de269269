package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/attractors/internal/config"
	"github.com/san-kum/attractors/internal/metrics"
	"github.com/san-kum/attractors/internal/particles"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/storage"
	"github.com/san-kum/attractors/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pollInterval = 10 * time.Millisecond

// resolveConfig layers defaults, preset, config file and changed flags, in
// that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	name := cfg.Attractor
	if len(args) > 0 {
		name = args[0]
	}

	if preset != "" {
		p := config.GetPreset(name, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		if cfg.Attractor != name {
			cfg.Params, cfg.Seed = nil, nil
		}
		cfg.Attractor = name
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("divergence") {
		cfg.Divergence = divergence
	}
	if flags.Changed("param") {
		if cfg.Params == nil {
			cfg.Params = map[string]float64{}
		}
		for k, v := range params {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			cfg.Params[k] = f
		}
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("engine") {
		cfg.Emitter.Engine = engine
	}
	if flags.Changed("size") {
		cfg.Emitter.Size = size
	}
	if flags.Changed("stop-full") {
		cfg.Emitter.StopFull = stopFull
	}
	if flags.Changed("restart-full") {
		cfg.Emitter.RestartFull = restartFull
	}
	if flags.Lookup("mode") != nil {
		if flags.Changed("mode") {
			cfg.Render.Mode = mode
		}
		if flags.Changed("cockpit") {
			cfg.Render.Cockpit = cockpit
		}
		if flags.Changed("tail") {
			cfg.Render.Tail = tail
		}
		if flags.Changed("invert-view") {
			cfg.Render.InvertView = invertView
		}
		if flags.Changed("pip") {
			cfg.Render.PiP = pip
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSystem builds the orchestrator for cfg on ctx, registering metrics on
// reg when it is non-nil.
func newSystem(cfg *config.Config, ctx *render.Context, reg prometheus.Registerer, l *zap.Logger) (*particles.System, error) {
	tf, err := cfg.TFSettings()
	if err != nil {
		return nil, err
	}
	ctx.Mode = cfg.Mode()
	ctx.Cockpit = tf
	return particles.New(ctx, particles.Config{
		Logger:      l,
		Metrics:     metrics.New(reg),
		JoinTimeout: cfg.JoinTimeout,
		Stepper:     cfg.NewStepper,
		Settings:    cfg.EmitterSettings(),
	}), nil
}

// serveMetrics runs a /metrics endpoint until ctx is done. It is a no-op
// without --metrics-addr.
func serveMetrics(ctx context.Context, reg *prometheus.Registry) error {
	if metricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:         metricsAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving metrics", zap.String("addr", metricsAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func runAttractor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	sys, err := newSystem(cfg, render.NewContext(1, 1), reg, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		mctx, cancel := context.WithCancel(gctx)
		defer cancel()
		go func() {
			select {
			case <-done:
				cancel()
			case <-mctx.Done():
			}
		}()
		return serveMetrics(mctx, reg)
	})

	var (
		id      string
		samples int
	)
	g.Go(func() error {
		defer close(done)
		var err error
		id, samples, err = integrate(gctx, cfg, sys)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("run: %s\n", id)
	fmt.Printf("attractor: %s\n", cfg.Attractor)
	fmt.Printf("particles: %d\n", samples)
	return nil
}

// integrate starts the emitter, waits for cfg.Steps samples or a halt,
// renders one frame to collect the visible particle set and stores it.
func integrate(ctx context.Context, cfg *config.Config, sys *particles.System) (string, int, error) {
	start := time.Now()
	if err := sys.BuildEmitter(cfg.Engine()); err != nil {
		return "", 0, err
	}
	defer sys.Close()

	thread := sys.Thread()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for thread.Steps() < uint64(cfg.Steps) && !thread.Halted() {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-ticker.C:
		}
	}

	if _, err := sys.RenderSingle(); err != nil {
		return "", 0, err
	}
	pts := sys.Particles()
	if err := sys.DeleteEmitter(); err != nil {
		return "", 0, err
	}

	steps := thread.Steps()
	log.Info("integration finished",
		zap.String("attractor", cfg.Attractor),
		zap.Uint64("steps", steps),
		zap.Int("particles", len(pts)),
		zap.Bool("halted", thread.Halted()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err := thread.Err(); err != nil {
		log.Warn("trajectory diverged", zap.Error(err))
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", 0, err
	}
	id, err := st.Save(storage.RunMetadata{
		Attractor:  cfg.Attractor,
		Params:     cfg.Params,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Steps:      int(steps),
		Integrator: cfg.Integrator,
		Engine:     cfg.Engine().String(),
		Metrics: map[string]float64{
			"written": float64(sys.Buffer().Written()),
			"elapsed": time.Since(start).Seconds(),
		},
	}, pts)
	if err != nil {
		return "", 0, err
	}
	return id, len(pts), nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// Log lines would tear the alt screen, so the live view is quiet unless
	// a level was asked for.
	l := zap.NewNop()
	if cmd.Flags().Changed("log-level") {
		l = log
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cols, rows := viz.CanvasSize(80, 24)
	rctx := render.NewContext(1, 1)
	screen := viz.NewScreen()
	viz.Install(rctx, screen, cols*2, rows*4)

	reg := prometheus.NewRegistry()
	sys, err := newSystem(cfg, rctx, reg, l)
	if err != nil {
		return err
	}
	defer sys.Close()

	opts := viz.Options{Title: cfg.Attractor, Cockpit: cfg.Render.Cockpit, Logger: l}
	var model tea.Model
	if pick {
		model = viz.NewPicker(sys, screen, cfg, opts)
	} else {
		if err := sys.BuildEmitter(cfg.Engine()); err != nil {
			return err
		}
		model = viz.NewModel(sys, screen, opts)
	}

	g, gctx := errgroup.WithContext(ctx)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	uiDone := make(chan struct{})
	g.Go(func() error {
		defer close(uiDone)
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		mctx, cancel := context.WithCancel(gctx)
		defer cancel()
		go func() {
			select {
			case <-uiDone:
				cancel()
			case <-mctx.Done():
			}
		}()
		return serveMetrics(mctx, reg)
	})
	return g.Wait()
}

package main

import (
	"fmt"
	"os"

	"github.com/san-kum/attractors/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir     string
	configFile  string
	preset      string
	metricsAddr string
	logLevel    string
	logJSON     bool

	dt          float64
	steps       int
	integrator  string
	divergence  string
	params      map[string]string
	seed        []float64
	engine      string
	size        int
	stopFull    bool
	restartFull bool
	mode        string
	cockpit     bool
	tail        float64
	invertView  bool
	pip         string
	pick        bool
	outFile     string
	svg         bool
	duration    float64
	all         bool
	sweep       string
	sweepFrom   float64
	sweepTo     float64
	sweepPoints int
	stateIndex  int
	axis        string
	level       float64

	log = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "attractors",
		Short:         "strange attractor particle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(logger.Config{Level: logLevel, Encoding: encoding()})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".attractors", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	runCmd := &cobra.Command{
		Use:   "run [attractor]",
		Short: "integrate an attractor headless and store the emitted particles",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAttractor,
	}
	engineFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [attractor]",
		Short: "render an attractor live in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	engineFlags(liveCmd)
	liveCmd.Flags().StringVar(&mode, "mode", "points", "render mode (points, billboard, both)")
	liveCmd.Flags().BoolVar(&cockpit, "cockpit", false, "start in the cockpit view")
	liveCmd.Flags().Float64Var(&tail, "tail", 0.05, "cockpit camera position along the buffer [0,1]")
	liveCmd.Flags().BoolVar(&invertView, "invert-view", false, "look from the head back at the tail")
	liveCmd.Flags().StringVar(&pip, "pip", "none", "picture-in-picture corner (none, lower-left, lower-right, upper-left, upper-right)")
	liveCmd.Flags().BoolVar(&pick, "pick", false, "choose the attractor from a menu")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot x, y and z of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().BoolVar(&svg, "svg", false, "render the particles as svg instead of json")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [attractor]",
		Short: "estimate the largest lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeAttractor,
	}
	engineFlags(analyzeCmd)
	analyzeCmd.Flags().Float64Var(&duration, "time", 100, "measured integration time")
	analyzeCmd.Flags().BoolVar(&all, "all", false, "survey every attractor with default parameters")

	bifurcateCmd := &cobra.Command{
		Use:   "bifurcate [attractor]",
		Short: "plot the maxima of one state component across a parameter sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE:  bifurcateAttractor,
	}
	engineFlags(bifurcateCmd)
	bifurcateCmd.Flags().StringVar(&sweep, "sweep", "c", "parameter to sweep")
	bifurcateCmd.Flags().Float64Var(&sweepFrom, "from", 2, "sweep start")
	bifurcateCmd.Flags().Float64Var(&sweepTo, "to", 6, "sweep end")
	bifurcateCmd.Flags().IntVar(&sweepPoints, "points", 80, "parameter values in the sweep")
	bifurcateCmd.Flags().IntVar(&stateIndex, "index", 0, "state component whose maxima are recorded")
	bifurcateCmd.Flags().Float64Var(&duration, "time", 100, "recorded integration time per parameter value")

	sectionCmd := &cobra.Command{
		Use:   "section [run_id]",
		Short: "plot the poincare section of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  sectionRun,
	}
	sectionCmd.Flags().StringVar(&axis, "axis", "z", "axis normal to the section plane (x, y, z)")
	sectionCmd.Flags().Float64Var(&level, "level", 0, "plane position along the axis")

	presetsCmd := &cobra.Command{
		Use:   "presets [attractor]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	attractorsCmd := &cobra.Command{
		Use:   "attractors",
		Short: "list attractors and their default parameters",
		RunE:  listAttractors,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, analyzeCmd, bifurcateCmd, sectionCmd, presetsCmd, attractorsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func engineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", 0.005, "timestep")
	f.IntVar(&steps, "steps", 20000, "samples to integrate before storing (run)")
	f.StringVar(&integrator, "integrator", "rk4", "integrator (rk4, rk45, euler)")
	f.StringVar(&divergence, "divergence", "halt", "on a non-finite sample: halt or reseed")
	f.StringToStringVar(&params, "param", nil, "attractor parameter, name=value")
	f.Float64SliceVar(&seed, "seed", nil, "initial state")
	f.StringVar(&engine, "engine", "static", "emitter engine (static, transformed)")
	f.IntVar(&size, "size", 20000, "circular buffer size")
	f.BoolVar(&stopFull, "stop-full", false, "stop integrating once the buffer is full")
	f.BoolVar(&restartFull, "restart-full", false, "empty the particle set every time the buffer fills")
}

func encoding() string {
	if logJSON {
		return "json"
	}
	return "console"
}

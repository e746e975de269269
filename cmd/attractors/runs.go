package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/attractors/internal/analysis"
	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/config"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/export"
	"github.com/san-kum/attractors/internal/integrators"
	"github.com/san-kum/attractors/internal/storage"
	"github.com/san-kum/attractors/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	maxPlotPoints = 400
	svgCols       = 120
	svgRows       = 60
	svgScale      = 4
	plotCols      = 80
	plotRows      = 20
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tATTRACTOR\tTIME\tSTEPS\tDT\tINTEG\tENGINE\tPARTICLES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%s\t%s\t%d\n",
			run.ID,
			run.Attractor,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Engine,
			run.Samples,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("attractor: %s\n", meta.Attractor)
	fmt.Printf("samples: %d\n\n", len(samples))

	stride := max(1, len(samples)/maxPlotPoints)
	xs := make([]float64, 0, len(samples)/stride+1)
	ys := make([]float64, 0, cap(xs))
	zs := make([]float64, 0, cap(xs))
	for i := 0; i < len(samples); i += stride {
		xs = append(xs, samples[i].X)
		ys = append(ys, samples[i].Y)
		zs = append(zs, samples[i].Z)
	}

	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"x", xs},
		{"y", ys},
		{"z", zs},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	st := storage.New(dataDir)
	if !svg {
		return st.ExportJSON(w, args[0])
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	return export.WriteParticles(w, samples, export.Frame(samples), svgCols, svgRows, svgScale)
}

func analyzeAttractor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if all {
		return surveyAttractors(cmd, cfg)
	}
	sys, err := attractors.NewWithParams(cfg.Attractor, cfg.Params)
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}
	x0 := sys.DefaultState()
	if len(cfg.Seed) > 0 {
		x0 = cfg.Seed
	}

	lc := analysis.DefaultLyapunov()
	lc.Dt = cfg.Dt
	lc.Duration = duration
	lambda, err := analysis.LyapunovExponent(sys, integ, x0, lc)
	if err != nil {
		return err
	}

	verdict := "not chaotic"
	if lambda > 0 {
		verdict = "chaotic"
	}
	fmt.Printf("attractor: %s\n", cfg.Attractor)
	fmt.Printf("lyapunov: %.4f (%s)\n", lambda, verdict)
	return nil
}

func bifurcateAttractor(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	bc := analysis.DefaultBifurcation(sweep, sweepFrom, sweepTo)
	bc.Steps = sweepPoints
	bc.StateIndex = stateIndex
	bc.Dt = cfg.Dt
	bc.Record = duration
	newInteg := func() dynamo.Integrator {
		integ, _ := integrators.New(cfg.Integrator)
		return integ
	}

	points, err := analysis.Bifurcation(cmd.Context(), cfg.Attractor, cfg.Params, newInteg, bc)
	if err != nil {
		return err
	}
	var pts [][2]float64
	for _, p := range points {
		if p.Err != nil {
			log.Warn("sweep point diverged", zap.Float64(sweep, p.Param), zap.Error(p.Err))
			continue
		}
		for _, v := range p.Maxima {
			pts = append(pts, [2]float64{p.Param, v})
		}
	}
	if len(pts) == 0 {
		return fmt.Errorf("no maxima recorded for %s over %s in [%g, %g]", cfg.Attractor, sweep, sweepFrom, sweepTo)
	}

	lo, hi, _ := analysis.Range(points)
	fmt.Printf("%s: maxima of x[%d] over %s in [%g, %g], spanning [%.3f, %.3f]\n", cfg.Attractor, stateIndex, sweep, sweepFrom, sweepTo, lo, hi)
	fmt.Println(scatter(pts))
	return nil
}

func sectionRun(cmd *cobra.Command, args []string) error {
	a, err := analysis.ParseAxis(axis)
	if err != nil {
		return err
	}
	samples, err := storage.New(dataDir).LoadSamples(args[0])
	if err != nil {
		return err
	}
	crossings := analysis.PoincareSection(samples, a, level)
	if len(crossings) == 0 {
		return fmt.Errorf("no upward crossings of %s=%g in run %s", a, level, args[0])
	}

	pts := make([][2]float64, len(crossings))
	for i, c := range crossings {
		pts[i] = [2]float64{c.U, c.V}
	}
	fmt.Printf("run %s: %d crossings of %s=%g\n", args[0], len(crossings), a, level)
	fmt.Println(scatter(pts))
	return nil
}

// scatter plots points on a braille canvas, x to the right and y up, with
// the data bounds printed around it.
func scatter(pts [][2]float64) string {
	minX, maxX := pts[0][0], pts[0][0]
	minY, maxY := pts[0][1], pts[0][1]
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}

	canvas := viz.NewCanvas(plotCols, plotRows)
	w, h := canvas.Dots()
	for _, p := range pts {
		x := int((p[0] - minX) / (maxX - minX) * float64(w-1))
		y := h - 1 - int((p[1]-minY)/(maxY-minY)*float64(h-1))
		canvas.Set(x, y)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%10.3f\n", maxY)
	b.WriteString(canvas.String())
	fmt.Fprintf(&b, "\n%10.3f\n", minY)
	fmt.Fprintf(&b, "%-10.3f%*.3f", minX, plotCols-10, maxX)
	return b.String()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.PresetAttractors()
	if len(args) > 0 {
		names = args
	}
	for _, name := range names {
		presets := config.ListPresets(name)
		if len(presets) == 0 {
			fmt.Printf("no presets for attractor: %s\n", name)
			continue
		}
		fmt.Printf("presets for %s:\n", name)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listAttractors(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tPARAMS")
	for _, name := range attractors.Names() {
		a, err := attractors.New(name)
		if err != nil {
			return err
		}
		p := a.GetParams()
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%g", k, p[k])
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, a.StateDim(), strings.Join(parts, " "))
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	if err := config.Save(args[0], config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func surveyAttractors(cmd *cobra.Command, cfg *config.Config) error {
	lc := analysis.DefaultLyapunov()
	lc.Dt = cfg.Dt
	lc.Duration = duration
	newInteg := func() dynamo.Integrator {
		integ, _ := integrators.New(cfg.Integrator)
		return integ
	}

	results, err := analysis.Survey(cmd.Context(), attractors.Names(), newInteg, lc)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRACTOR\tLYAPUNOV\tVERDICT")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t-\t%v\n", r.Attractor, r.Err)
			continue
		}
		verdict := "not chaotic"
		if r.Lyapunov > 0 {
			verdict = "chaotic"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\n", r.Attractor, r.Lyapunov, verdict)
	}
	return w.Flush()
}

package viz

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/attractors/internal/config"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/particles"
	"github.com/san-kum/attractors/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCanvas(t *testing.T) {
	c := NewCanvas(2, 1)
	w, h := c.Dots()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)

	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	assert.Equal(t, 2, c.Lit())
	assert.Equal(t, string([]rune{0x2801, 0x2880}), c.String())

	c.Unset(0, 0)
	assert.False(t, c.IsSet(0, 0))
	assert.True(t, c.IsSet(3, 3))

	c.ClearRect(0, 0, 4, 4)
	assert.Equal(t, 0, c.Lit())

	c.DrawLine(0, 0, 3, 0)
	assert.Equal(t, 4, c.Lit())
}

func TestCanvas_OrAndCopy(t *testing.T) {
	a, b := NewCanvas(2, 2), NewCanvas(1, 1)
	a.Set(0, 0)
	b.Set(1, 1)
	a.Or(b)
	assert.Equal(t, 2, a.Lit())

	c := NewCanvas(0, 0)
	c.CopyFrom(a)
	assert.Equal(t, a.String(), c.String())
}

func pipeline(t *testing.T, w, h int) (*render.Context, *Screen) {
	t.Helper()
	ctx := render.NewContext(1, 1)
	s := NewScreen()
	Install(ctx, s, w, h)
	return ctx, s
}

func TestDotPass_ProjectsTargetToCentre(t *testing.T) {
	ctx, s := pipeline(t, 40, 40)
	tex := ctx.Points.Particles.Render([]dynamo.Sample{{}}, ctx.Main, ctx.Viewport())
	c := s.Canvas(tex)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Lit())
	assert.True(t, c.IsSet(20, 20) || c.IsSet(19, 19) || c.IsSet(20, 19) || c.IsSet(19, 20))
}

func TestDotPass_DegenerateViewDrawsNothing(t *testing.T) {
	ctx, s := pipeline(t, 20, 20)
	view := ctx.Main
	view.POV = view.Target
	tex := ctx.Points.Particles.Render([]dynamo.Sample{{}, {X: 1}}, view, ctx.Viewport())
	assert.Equal(t, 0, s.Canvas(tex).Lit())
}

func TestDotPass_PiPKeepsFrameOutsideViewport(t *testing.T) {
	ctx, s := pipeline(t, 40, 40)
	pass := ctx.Points.Particles
	far := []dynamo.Sample{{X: 8, Y: 8}}
	tex := pass.Render(far, ctx.Main, ctx.Viewport())
	before := s.Canvas(tex).Lit()
	require.Equal(t, 1, before)

	pip := render.Viewport{X: 0, Y: 0, W: 10, H: 10}
	tex = pass.Render(nil, ctx.Main, pip)
	// The frame border plus the untouched dot.
	assert.Equal(t, before+36, s.Canvas(tex).Lit())
}

func TestBillboardAndMerge(t *testing.T) {
	ctx, s := pipeline(t, 40, 40)
	one := []dynamo.Sample{{}}
	bb := ctx.Billboard.Particles.Render(one, ctx.Main, ctx.Viewport())
	pt := ctx.Points.Particles.Render([]dynamo.Sample{{X: 8, Y: 8}}, ctx.Main, ctx.Viewport())
	assert.Equal(t, 5, s.Canvas(bb).Lit())

	merged := ctx.Merge.Merge(bb, pt)
	assert.Equal(t, 6, s.Canvas(merged).Lit())

	glowed := ctx.Points.Glow.Apply(pt)
	assert.Equal(t, 3, s.Canvas(glowed).Lit())
	assert.Nil(t, s.Canvas(0))
}

func TestOrbitAndZoom(t *testing.T) {
	tr := render.DefaultTransform()
	dist := tr.POV.Sub(tr.Target).Len()

	Orbit(&tr, math.Pi/2, 0)
	assert.InDelta(t, dist, tr.POV.Sub(tr.Target).Len(), 1e-9)
	assert.InDeltaSlice(t, []float64{dist, 0, 0}, tr.POV[:], 1e-9, "got %v", tr.POV)

	for i := 0; i < 100; i++ {
		Orbit(&tr, 0, 0.1)
	}
	up := tr.POV.Sub(tr.Target).Normalize().Dot(tr.Up)
	assert.Less(t, math.Abs(up), 0.99, "pitch stops short of the pole")

	Zoom(&tr, 0.5)
	assert.InDelta(t, dist/2, tr.POV.Sub(tr.Target).Len(), 1e-9)
	Zoom(&tr, 1e-9)
	assert.InDelta(t, dist/2, tr.POV.Sub(tr.Target).Len(), 1e-9, "zoom never reaches the target")
}

func liveSystem(t *testing.T) (*particles.System, *Screen) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Emitter.Size = 2000
	ctx, s := pipeline(t, 60, 60)
	sys := particles.New(ctx, particles.Config{
		Logger:   zaptest.NewLogger(t),
		Stepper:  cfg.NewStepper,
		Settings: cfg.EmitterSettings(),
	})
	require.NoError(t, sys.BuildEmitter(emitter.Static))
	t.Cleanup(func() { _ = sys.Close() })
	return sys, s
}

func TestModel_TickRendersFrames(t *testing.T) {
	sys, s := liveSystem(t)
	var m tea.Model = NewModel(sys, s, Options{Title: "lorenz", Logger: zaptest.NewLogger(t)})

	require.Eventually(t, func() bool {
		m, _ = m.Update(TickMsg(time.Now()))
		return strings.ContainsFunc(m.(Model).frame, func(r rune) bool { return r > 0x2800 && r <= 0x28ff })
	}, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, m.View(), "LORENZ")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.True(t, m.(Model).cockpit)
	m, _ = m.Update(TickMsg(time.Now()))
	assert.NoError(t, m.(Model).err)
	assert.Contains(t, m.View(), "COCKPIT")
}

func TestModel_Keys(t *testing.T) {
	sys, s := liveSystem(t)
	var m tea.Model = NewModel(sys, s, Options{})
	press := func(k string) {
		t.Helper()
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		require.NoError(t, m.(Model).err, k)
	}

	press("e")
	engine, ok := sys.Engine()
	require.True(t, ok)
	assert.Equal(t, emitter.Transformed, engine)

	press("m")
	assert.Equal(t, render.Billboard, sys.Mode())

	press("]")
	assert.InDelta(t, render.DefaultTFSettings().Tail+tailStep, sys.Cockpit().Tail, 1e-12)
	press("i")
	assert.True(t, sys.Cockpit().InvertView)
	press("p")
	assert.Equal(t, render.PiPLowerLeft, sys.Cockpit().PiP)

	press("s")
	assert.True(t, sys.Settings().StopFull)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowSizeReshapes(t *testing.T) {
	sys, s := liveSystem(t)
	var m tea.Model = NewModel(sys, s, Options{})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	cols, rows := CanvasSize(120, 40)
	w, h := sys.Size()
	assert.Equal(t, cols*2, w)
	assert.Equal(t, rows*4, h)
	_ = m
}

package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/logger"
	"github.com/san-kum/attractors/internal/particles"
	"github.com/san-kum/attractors/internal/render"
	"go.uber.org/zap"
)

const (
	defaultCols  = 80
	defaultRows  = 24
	statsWidth   = 40
	traceCap     = 120
	orbitStep    = 0.08
	tailStep     = 0.05
	frameRate    = 60
	zoomInFactor = 0.9
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(statsWidth)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a particle system from the bubbletea event loop: every tick
// renders one frame, either the main orbit view or the cockpit.
type Model struct {
	sys    *particles.System
	screen *Screen
	log    *zap.Logger
	title  string

	cockpit  bool
	frame    string
	err      error
	trace    []float64
	frames   int
	lastTick time.Time
	fps      float64
	showHelp bool
	width    int
	height   int
}

type Options struct {
	Title   string
	Cockpit bool
	Logger  *zap.Logger
}

// NewModel wraps sys, whose render context must already carry the passes
// installed on screen.
func NewModel(sys *particles.System, screen *Screen, opts Options) Model {
	return Model{
		sys:     sys,
		screen:  screen,
		log:     logger.OrNop(opts.Logger).Named("viz"),
		title:   opts.Title,
		cockpit: opts.Cockpit,
		trace:   make([]float64, 0, traceCap),
		width:   defaultCols,
		height:  defaultRows,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols, rows := CanvasSize(msg.Width, msg.Height)
		m.sys.OnReshape(cols*2, rows*4)
		return m, nil
	case TickMsg:
		now := time.Time(msg)
		if !m.lastTick.IsZero() {
			if dt := now.Sub(m.lastTick).Seconds(); dt > 0 {
				m.fps = 0.9*m.fps + 0.1/dt
			}
		}
		m.lastTick = now
		m.renderFrame()
		return m, tick()
	}
	return m, nil
}

// CanvasSize is the braille area left of the stats panel for a terminal
// of cols x rows.
func CanvasSize(cols, rows int) (int, int) {
	return max(cols-statsWidth-6, 10), max(rows-4, 4)
}

func (m *Model) renderFrame() {
	var (
		tex render.Texture
		err error
	)
	if m.cockpit {
		tex, err = m.sys.RenderTF()
	} else {
		tex, err = m.sys.RenderSingle()
	}
	m.err = err
	if err != nil {
		if !errors.Is(err, particles.ErrNoSamples) {
			m.log.Debug("frame failed", zap.Error(err))
		}
		return
	}
	m.frames++
	if c := m.screen.Canvas(tex); c != nil {
		m.frame = c.String()
	}
	if ring := m.sys.Buffer(); ring != nil {
		if s, ok := ring.Current(); ok {
			m.trace = append(m.trace, s.X)
			if len(m.trace) > traceCap {
				m.trace = m.trace[1:]
			}
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "c":
		m.cockpit = !m.cockpit
	case "e":
		m.err = m.cycleEngine()
	case "m":
		m.sys.SetMode((m.sys.Mode() + 1) % (render.Both + 1))
	case "i":
		m.err = m.editCockpit(func(tf *render.TFSettings) { tf.InvertView = !tf.InvertView })
	case "v":
		m.err = m.editCockpit(func(tf *render.TFSettings) { tf.InvertPiP = !tf.InvertPiP })
	case "p":
		m.err = m.editCockpit(func(tf *render.TFSettings) { tf.PiP = (tf.PiP + 1) % (render.PiPUpperRight + 1) })
	case "[":
		m.err = m.editCockpit(func(tf *render.TFSettings) { tf.Tail = max(tf.Tail-tailStep, 0) })
	case "]":
		m.err = m.editCockpit(func(tf *render.TFSettings) { tf.Tail = min(tf.Tail+tailStep, 1) })
	case "s":
		st := m.sys.Settings()
		st.StopFull = !st.StopFull
		m.err = m.sys.SetSettings(st)
	case "f":
		st := m.sys.Settings()
		st.RestartFull = !st.RestartFull
		m.err = m.sys.SetSettings(st)
	case "r":
		m.err = m.sys.SetSettings(m.sys.Settings())
		m.trace = m.trace[:0]
	case "left", "h":
		m.sys.UpdateMain(func(t *render.Transform) { Orbit(t, orbitStep, 0) })
	case "right", "l":
		m.sys.UpdateMain(func(t *render.Transform) { Orbit(t, -orbitStep, 0) })
	case "up", "k":
		m.sys.UpdateMain(func(t *render.Transform) { Orbit(t, 0, orbitStep) })
	case "down", "j":
		m.sys.UpdateMain(func(t *render.Transform) { Orbit(t, 0, -orbitStep) })
	case "+", "=":
		m.sys.UpdateMain(func(t *render.Transform) { Zoom(t, zoomInFactor) })
	case "-", "_":
		m.sys.UpdateMain(func(t *render.Transform) { Zoom(t, 1/zoomInFactor) })
	}
	return m, nil
}

func (m *Model) cycleEngine() error {
	engine, ok := m.sys.Engine()
	if !ok {
		return particles.ErrNoEmitter
	}
	next := emitter.Static
	if engine == emitter.Static {
		next = emitter.Transformed
	}
	m.log.Info("changing emitter", zap.Stringer("from", engine), zap.Stringer("to", next))
	return m.sys.ChangeEmitter(next)
}

func (m *Model) editCockpit(fn func(*render.TFSettings)) error {
	tf := m.sys.Cockpit()
	fn(&tf)
	return m.sys.SetCockpit(tf)
}

// Orbit turns the eye around the target: yaw about the up vector, pitch
// about the camera's right vector.
func Orbit(t *render.Transform, yaw, pitch float64) {
	d := t.POV.Sub(t.Target)
	if yaw != 0 {
		d = mgl64.QuatRotate(yaw, t.Up.Normalize()).Rotate(d)
	}
	if pitch != 0 {
		right := t.Up.Cross(d)
		if right.LenSqr() > 1e-18 {
			rotated := mgl64.QuatRotate(pitch, right.Normalize()).Rotate(d)
			// Stop short of the poles where LookAt flips.
			if cos := rotated.Normalize().Dot(t.Up.Normalize()); cos < 0.99 && cos > -0.99 {
				d = rotated
			}
		}
	}
	t.POV = t.Target.Add(d)
}

// Zoom scales the eye's distance to the target.
func Zoom(t *render.Transform, factor float64) {
	d := t.POV.Sub(t.Target).Mul(factor)
	if d.Len() < t.Near*2 {
		return
	}
	t.POV = t.Target.Add(d)
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.frame)

	var s strings.Builder
	title := m.title
	if title == "" {
		title = "attractor"
	}
	s.WriteString(headerStyle.Render(strings.ToUpper(title)) + "\n")

	view := "ORBIT"
	if m.cockpit {
		view = "COCKPIT"
	}
	thread := m.sys.Thread()
	s.WriteString(fmt.Sprintf("%s  %s  %.0f fps\n\n", view, thread.State(), m.fps))

	if len(m.trace) > 1 {
		chart := asciigraph.Plot(m.trace, asciigraph.Height(5), asciigraph.Width(statsWidth-12), asciigraph.Caption("x(t)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	if engine, ok := m.sys.Engine(); ok {
		row("Engine", engine.String())
	} else {
		row("Engine", "-")
	}
	row("Mode", m.sys.Mode().String())
	settings := m.sys.Settings()
	row("Buffer", fmt.Sprintf("%d", settings.Size))
	row("Full", fullLabel(settings))
	row("Steps", fmt.Sprintf("%d", thread.Steps()))
	if ring := m.sys.Buffer(); ring != nil {
		row("Written", fmt.Sprintf("%d", ring.Written()))
		row("Retained", fmt.Sprintf("%d", ring.Len()))
	}
	row("Frames", fmt.Sprintf("%d", m.frames))

	tf := m.sys.Cockpit()
	s.WriteString("\nCOCKPIT\n")
	s.WriteString(labelStyle.Render("Tail") + activeValueStyle.Render(fmt.Sprintf("%.2f", tf.Tail)) + "\n")
	row("Invert", fmt.Sprintf("%v", tf.InvertView))
	row("PiP", tf.PiP.String())

	if thread.Halted() {
		msg := "halted"
		if err := thread.Err(); err != nil {
			msg = err.Error()
		}
		s.WriteString("\n" + errorStyle.Render(msg) + "\n")
	} else if m.err != nil && !errors.Is(m.err, particles.ErrNoSamples) {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nC:Cockpit E:Engine M:Mode\nR:Restart Q:Quit ?:Help"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func fullLabel(s emitter.Settings) string {
	switch {
	case s.StopFull:
		return "stop"
	case s.RestartFull:
		return "restart"
	default:
		return "overwrite"
	}
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  C        - Toggle cockpit view      ║
║  E        - Switch emitter engine    ║
║  M        - Cycle render mode        ║
║  ←→↑↓     - Orbit main camera        ║
║  + / -    - Zoom                     ║
║  [ / ]    - Move cockpit tail        ║
║  I        - Invert cockpit view      ║
║  P        - Cycle picture-in-picture ║
║  V        - Swap PiP and full view   ║
║  S        - Toggle stop when full    ║
║  F        - Toggle restart when full ║
║  R        - Restart trajectory       ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

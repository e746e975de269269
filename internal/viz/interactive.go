package viz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/config"
	"github.com/san-kum/attractors/internal/particles"
)

var attractorInfo = map[string]string{
	"lorenz": "butterfly", "rossler": "spiral chaos", "aizawa": "sphere with a tube",
	"thomas": "cyclically symmetric", "halvorsen": "three-lobed", "chen": "double scroll",
	"dadras": "four wings", "hyper_rossler": "4d, projected",
}

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuAccent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuIdleDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	menuKey      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// Picker chooses an attractor and its parameters, then hands the system to
// the live view.
type Picker struct {
	state, cursor int
	names         []string
	base          *config.Config
	cfg           *config.Config
	paramNames    []string
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	sys           *particles.System
	screen        *Screen
	opts          Options
	live          Model
	width, height int
}

func NewPicker(sys *particles.System, screen *Screen, base *config.Config, opts Options) *Picker {
	return &Picker{
		state:  stateMenu,
		names:  attractors.Names(),
		base:   base,
		sys:    sys,
		screen: screen,
		opts:   opts,
		width:  defaultCols,
		height: defaultRows,
	}
}

func (m Picker) Init() tea.Cmd { return nil }

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state != stateSim {
			cols, rows := CanvasSize(msg.Width, msg.Height)
			m.sys.OnReshape(cols*2, rows*4)
			return m, nil
		}
	}
	if m.state == stateSim {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	return m, nil
}

func (m Picker) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	default:
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
}

func (m Picker) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selectAttractor(m.names[m.cursor])
	}
	return m, nil
}

func (m *Picker) selectAttractor(name string) {
	cfg := m.base.Clone()
	if cfg.Attractor != name {
		cfg.Params = nil
		cfg.Seed = nil
	}
	cfg.Attractor = name
	if a, err := attractors.NewWithParams(name, cfg.Params); err == nil {
		cfg.Params = a.GetParams()
	}
	m.cfg = cfg
	m.paramNames = m.paramNames[:0]
	for k := range cfg.Params {
		m.paramNames = append(m.paramNames, k)
	}
	sort.Strings(m.paramNames)
	m.paramNames = append(m.paramNames, "dt")
	m.state, m.paramCursor, m.err = stateConfig, 0, nil
}

func (m *Picker) value(name string) float64 {
	if name == "dt" {
		return m.cfg.Dt
	}
	return m.cfg.Params[name]
}

func (m *Picker) setValue(name string, v float64) {
	if name == "dt" {
		m.cfg.Dt = v
		return
	}
	m.cfg.Params[name] = v
}

func (m Picker) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.paramNames[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				m.setValue(name, val)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", m.value(name))
	case "left", "h":
		m.setValue(name, m.value(name)*0.95)
	case "right", "l":
		m.setValue(name, m.value(name)*1.05)
	case "s":
		return m.start()
	}
	return m, nil
}

// start validates the chosen configuration, points the system at it and
// switches to the live view.
func (m Picker) start() (tea.Model, tea.Cmd) {
	if err := m.cfg.Validate(); err != nil {
		m.err = err
		return m, nil
	}
	if err := m.sys.SetStepper(m.cfg.NewStepper); err != nil {
		m.err = err
		return m, nil
	}
	if _, ok := m.sys.Engine(); !ok {
		if err := m.sys.BuildEmitter(m.cfg.Engine()); err != nil && !errors.Is(err, particles.ErrEmitterExists) {
			m.err = err
			return m, nil
		}
	}
	opts := m.opts
	opts.Title = m.cfg.Attractor
	m.live = NewModel(m.sys, m.screen, opts)
	m.state = stateSim
	return m, m.live.Init()
}

func (m Picker) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	default:
		return m.live.View()
	}
}

func (m Picker) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("ATTRACTORS") + "\n    " + menuSub.Render("strange attractor particle engine") + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, name := range m.names {
		desc := attractorInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuSelected.Render(fmt.Sprintf("%-16s", name)), menuAccent.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuIdle.Render(fmt.Sprintf("  %-16s", name)), menuIdleDesc.Render(desc)))
		}
	}
	b.WriteString("\n    " + keyHints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m Picker) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(m.cfg.Attractor)) + "\n    " + menuSub.Render(attractorInfo[m.cfg.Attractor]) + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, name := range m.paramNames {
		valStr := fmt.Sprintf("%10.4g", m.value(name))
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuSelected.Render(fmt.Sprintf("%-10s", name)), menuAccent.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuIdle.Render(fmt.Sprintf("  %-10s", name)), menuIdleDesc.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keyHints("j/k", "select", "h/l", "adjust", "s", "start", "esc", "back") + "\n")
	return b.String()
}

func keyHints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKey.Render(pairs[i]) + menuIdle.Render(" "+pairs[i+1]+"  "))
	}
	return strings.TrimRight(b.String(), " ")
}

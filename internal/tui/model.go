package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/portrait/portrait/internal/canvas"
	"github.com/portrait/portrait/internal/geometry"
	"github.com/portrait/portrait/internal/interaction"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/render"
	"github.com/portrait/portrait/internal/shape"
)

const (
	// wheelLines is how many cell heights one wheel notch scrolls.
	wheelLines = 3
	// panCells is how many cells an arrow key pans.
	panCells = 4
	zoomStep = 1.25
)

type inboundMsg protocol.Message

type inboundClosedMsg struct{}

type disconnectedMsg struct{ err error }

// Options configures the terminal canvas.
type Options struct {
	Canvas  *canvas.Canvas
	Manager *interaction.Manager

	// Inbound carries relay messages. The model applies them on its own
	// loop, so the canvas is only ever touched from Update.
	Inbound <-chan protocol.Message
	// Disconnected yields the transport's failure once.
	Disconnected <-chan error

	// CellWidth and CellHeight are the canvas pixels one terminal cell
	// covers.
	CellWidth  float64
	CellHeight float64

	UserID string
}

// Model is the Bubble Tea model of the terminal canvas.
type Model struct {
	canvas       *canvas.Canvas
	manager      *interaction.Manager
	inbound      <-chan protocol.Message
	disconnected <-chan error

	keys   keyMap
	cellW  float64
	cellH  float64
	userID string

	width  int
	height int
	ready  bool

	showHelp bool
	editing  bool
	input    textinput.Model

	offline bool
	connErr error
}

func New(opts Options) Model {
	cellW, cellH := opts.CellWidth, opts.CellHeight
	if cellW <= 0 {
		cellW = 8
	}
	if cellH <= 0 {
		cellH = 16
	}
	opts.Manager.SetBufferScale(cellW, cellH)

	return Model{
		canvas:       opts.Canvas,
		manager:      opts.Manager,
		inbound:      opts.Inbound,
		disconnected: opts.Disconnected,
		keys:         defaultKeyMap(),
		cellW:        cellW,
		cellH:        cellH,
		userID:       opts.UserID,
		input:        textinput.New(),
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.inbound != nil {
		cmds = append(cmds, waitInbound(m.inbound))
	}
	if m.disconnected != nil {
		cmds = append(cmds, waitDisconnect(m.disconnected))
	}
	return tea.Batch(cmds...)
}

func waitInbound(ch <-chan protocol.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return inboundClosedMsg{}
		}
		return inboundMsg(msg)
	}
}

func waitDisconnect(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return disconnectedMsg{err: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if !m.editing && !m.showHelp {
			m.handleMouse(msg)
		}
		return m, nil

	case inboundMsg:
		m.canvas.ApplyRemote(protocol.Message(msg))
		return m, waitInbound(m.inbound)

	case inboundClosedMsg:
		m.offline = true
		return m, nil

	case disconnectedMsg:
		m.offline = true
		m.connErr = msg.err
		return m, nil
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	view := m.manager.Viewport()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.EditText):
		return m.startEditing()
	case key.Matches(msg, m.keys.ZoomIn):
		view.ZoomBy(m.center(), zoomStep)
	case key.Matches(msg, m.keys.ZoomOut):
		view.ZoomBy(m.center(), 1/zoomStep)
	case key.Matches(msg, m.keys.ResetView):
		view.Reset()
	case key.Matches(msg, m.keys.PanLeft):
		view.Pan(geometry.Pt(panCells*m.cellW, 0))
	case key.Matches(msg, m.keys.PanRight):
		view.Pan(geometry.Pt(-panCells*m.cellW, 0))
	case key.Matches(msg, m.keys.PanUp):
		view.Pan(geometry.Pt(0, panCells*m.cellH))
	case key.Matches(msg, m.keys.PanDown):
		view.Pan(geometry.Pt(0, -panCells*m.cellH))
	default:
		m.manager.Key(msg)
	}
	return m, nil
}

func (m Model) startEditing() (tea.Model, tea.Cmd) {
	sel, ok := m.canvas.Selected()
	if !ok || sel.Kind != shape.KindText || m.manager.State() != interaction.Idle {
		return m, nil
	}
	m.editing = true
	m.input.Prompt = "text: "
	m.input.SetValue(sel.Text)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.manager.SetText(m.input.Value())
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) {
	// Events land on the center of the cell.
	x, y := float64(msg.X)+0.5, float64(msg.Y)+0.5
	mods := interaction.Modifiers{Shift: msg.Shift, Alt: msg.Alt, Ctrl: msg.Ctrl}

	if tea.MouseEvent(msg).IsWheel() {
		e := interaction.WheelEvent{X: x, Y: y, Mods: mods}
		step := wheelLines * m.cellH
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			e.DeltaY = -step
		case tea.MouseButtonWheelDown:
			e.DeltaY = step
		case tea.MouseButtonWheelLeft:
			e.DeltaX = -step
		case tea.MouseButtonWheelRight:
			e.DeltaX = step
		}
		m.manager.Wheel(e)
		return
	}

	e := interaction.PointerEvent{X: x, Y: y, Mods: mods}
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			e.Button = interaction.ButtonPrimary
		case tea.MouseButtonMiddle:
			e.Button = interaction.ButtonMiddle
		case tea.MouseButtonRight:
			e.Button = interaction.ButtonSecondary
		default:
			return
		}
		m.manager.PointerDown(e)
	case tea.MouseActionMotion:
		m.manager.PointerMove(e)
	case tea.MouseActionRelease:
		m.manager.PointerUp(e)
	}
}

// center is the middle of the drawing area in canvas pixels.
func (m Model) center() geometry.Point {
	return geometry.Pt(float64(m.width)*m.cellW/2, float64(m.canvasRows())*m.cellH/2)
}

func (m Model) canvasRows() int {
	return max(m.height-1, 0)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderCanvas() + "\n" + m.renderStatus()
}

func (m Model) renderCanvas() string {
	rows := m.canvasRows()
	view := m.manager.Viewport()
	surface := NewSurface(m.width, rows, m.cellW, m.cellH)
	cmds := render.Compile(m.canvas.Shapes(), render.Options{
		Grid:       m.manager.Grid(),
		Area:       view.VisibleWorld(float64(m.width)*m.cellW, float64(rows)*m.cellH),
		SelectedID: m.canvas.SelectedID(),
		Cursors:    m.canvas.Presence().Cursors(),
	})
	surface.Draw(cmds, view.Matrix())
	return surface.Render()
}

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f8f8f2")).Background(lipgloss.Color("#44475a"))
	modeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#282a36")).Background(lipgloss.Color("#8be9fd")).Padding(0, 1)
	offlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f8f8f2")).Background(lipgloss.Color("#ff5555")).Padding(0, 1)
	helpKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8be9fd"))
)

func (m Model) renderStatus() string {
	if m.editing {
		return m.input.View()
	}

	view := m.manager.Viewport()
	g := m.manager.Grid()

	parts := []string{
		m.manager.State().String(),
		fmt.Sprintf("%.0f%%", view.Scale*100),
		"room " + m.canvas.RoomID(),
		fmt.Sprintf("%d online", max(len(m.canvas.Presence().Users()), 1)),
		fmt.Sprintf("%d shapes", m.canvas.Len()),
	}
	if m.userID != "" {
		parts = append(parts, "you "+m.userID)
	}
	if g.Visible {
		parts = append(parts, "grid")
	}
	if g.Snap {
		parts = append(parts, "snap")
	}
	parts = append(parts, "? help")

	left := modeStyle.Render(string(m.canvas.Mode()))
	if m.offline {
		label := "offline"
		if m.connErr != nil && !errors.Is(m.connErr, context.Canceled) {
			label = "offline: " + m.connErr.Error()
		}
		left += offlineStyle.Render(label)
	}
	line := left + statusStyle.Render(" "+strings.Join(parts, " · ")+" ")
	if w := lipgloss.Width(line); w < m.width {
		line += statusStyle.Render(strings.Repeat(" ", m.width-w))
	}
	return line
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	bindings := append(m.manager.Keys().Help(), m.keys.help()...)
	for _, kb := range bindings {
		h := kb.Help()
		if h.Key == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n", helpKeyStyle.Render(fmt.Sprintf("%-8s", h.Key)), h.Desc)
	}
	b.WriteString("\n  mouse: drag to draw or move, alt+drag rotates, ctrl+drag or middle button pans,\n")
	b.WriteString("         wheel pans, ctrl+wheel zooms\n\n")
	b.WriteString("Press any key to close")
	return b.String()
}

// Package debugger implements an interactive terminal debugger for
// Brainfuck programs. It drives a vm.Machine one step, or one bounded
// slice of steps, per frame so the UI stays responsive while a program
// runs.
package debugger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chazu/brainfuck/program"
	"github.com/chazu/brainfuck/vm"
)

const (
	// runBatch is how many machine steps a single run-mode frame may
	// execute before yielding back to the event loop.
	runBatch = 8192

	// sourceRadius is how many source lines appear above and below the
	// line holding the current instruction.
	sourceRadius = 2
)

// Config holds debugger configuration.
type Config struct {
	Name    string      // program name shown in the header
	Source  []byte      // program text
	Input   []byte      // bytes served to , reads; stdin is not available under the TUI
	Options []vm.Option // machine options (tape length, EOF policy, ...)
}

// DefaultConfig returns the default debugger configuration.
func DefaultConfig() Config {
	return Config{
		Name: "program",
	}
}

// stepTickMsg asks the update loop to execute the next run slice. gen
// identifies which machine the tick belongs to, so ticks aimed at a
// machine that was replaced by a restart are dropped.
type stepTickMsg struct {
	gen int
}

func stepTick(gen int) tea.Cmd {
	return func() tea.Msg {
		return stepTickMsg{gen: gen}
	}
}

// Model is the debugger TUI state.
type Model struct {
	cfg Config

	machine *vm.Machine
	out     *bytes.Buffer
	err     error

	running bool
	gen     int

	viewport   viewport.Model
	spinner    spinner.Model
	width      int
	height     int
	ready      bool
	lastOutLen int
}

// New builds a debugger over the configured program. A structural error
// in the source surfaces here, before the TUI starts.
func New(cfg Config) (Model, error) {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	m := Model{
		cfg:     cfg,
		spinner: sp,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// reset builds a fresh machine over the configured source and input and
// discards any output collected so far.
func (m *Model) reset() error {
	out := &bytes.Buffer{}
	machine, err := vm.New(program.Scan(m.cfg.Source), bytes.NewReader(m.cfg.Input), out, m.cfg.Options...)
	if err != nil {
		return err
	}
	m.machine = machine
	m.out = out
	m.err = nil
	m.running = false
	m.gen++
	m.lastOutLen = -1
	if m.ready {
		m.updateViewportContent()
	}
	return nil
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Everything except the output viewport has a fixed height.
		chromeHeight := 16 + 2*sourceRadius
		viewportHeight := msg.Height - chromeHeight
		if viewportHeight < 3 {
			viewportHeight = 3
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width-6, viewportHeight)
			m.ready = true
			m.updateViewportContent()
		} else {
			m.viewport.Width = msg.Width - 6
			m.viewport.Height = viewportHeight
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepTickMsg:
		if msg.gen != m.gen || !m.running {
			return m, nil
		}
		for i := 0; i < runBatch; i++ {
			if m.machine.Done() {
				m.running = false
				break
			}
			if err := m.machine.Step(); err != nil {
				m.err = err
				m.running = false
				break
			}
		}
		if m.machine.Done() {
			m.running = false
		}
		m.updateViewportContent()
		if m.running {
			return m, stepTick(m.gen)
		}
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "s", " ":
		if m.running || m.err != nil || m.machine.Done() {
			return m, nil
		}
		if err := m.machine.Step(); err != nil {
			m.err = err
		}
		m.updateViewportContent()
		return m, nil

	case "r":
		if m.running || m.err != nil || m.machine.Done() {
			return m, nil
		}
		m.running = true
		return m, stepTick(m.gen)

	case "p":
		m.running = false
		return m, nil

	case "g":
		if err := m.reset(); err != nil {
			m.err = err
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

// updateViewportContent refreshes the output pane when new bytes arrived.
func (m *Model) updateViewportContent() {
	if m.out.Len() == m.lastOutLen {
		return
	}
	m.lastOutLen = m.out.Len()
	m.viewport.SetContent(string(m.out.Bytes()))
	m.viewport.GotoBottom()
}

// View renders the debugger.
func (m Model) View() string {
	if !m.ready {
		return "\n  starting debugger..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderTape())
	b.WriteByte('\n')
	b.WriteString(m.renderSource())
	b.WriteByte('\n')
	b.WriteString(m.renderOutput())
	b.WriteByte('\n')
	b.WriteString(m.renderStatusBar())
	b.WriteString(m.renderHelpBar())
	return b.String()
}

// renderHeader renders the title panel.
func (m Model) renderHeader() string {
	title := TitleStyle.Render("bf debug")
	if m.cfg.Name != "" {
		title += TapeLabelStyle.Render("  " + m.cfg.Name)
	}
	return TitlePanelStyle.Width(m.width - 2).Render(title)
}

// renderTape renders a window of tape cells centered on the pointer.
func (m Model) renderTape() string {
	tape := m.machine.Tape()
	ptr := tape.Pointer()
	start, end := tapeWindow(ptr, tape.Len(), tapeCellCount(m.width))

	cells := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		cell := fmt.Sprintf("%02X", tape.CellAt(i))
		if i == ptr {
			cell = ActiveCellStyle.Render(cell)
		} else {
			cell = CellStyle.Render(cell)
		}
		cells = append(cells, cell)
	}

	label := TapeLabelStyle.Render(fmt.Sprintf("tape  cells %d-%d of %d  cell[%d] = %d (0x%02X)",
		start, end-1, tape.Len(), ptr, tape.Cell(), tape.Cell()))
	return TapePanelStyle.Width(m.width - 2).Render(label + "\n" + strings.Join(cells, " "))
}

// renderSource renders the source window centered on the line holding
// the current instruction.
func (m Model) renderSource() string {
	lines := strings.Split(string(m.cfg.Source), "\n")

	cur, col := -1, -1
	prog := m.machine.Program()
	if ip := m.machine.IP(); ip < prog.Len() {
		pos := program.PositionFor(prog.Src, prog.Offsets[ip])
		cur, col = pos.Line-1, pos.Column-1
	}

	lineWidth := m.width - 10
	if lineWidth < 8 {
		lineWidth = 8
	}

	from, to := sourceWindow(cur, len(lines), sourceRadius)
	rows := make([]string, 0, 2*sourceRadius+1)
	for i := from; i < to; i++ {
		gutter := GutterStyle.Render(fmt.Sprintf("%4d  ", i+1))
		if i == cur {
			line, c := sourceColumns(lines[i], col, lineWidth)
			if c >= 0 && c < len(line) {
				rows = append(rows, gutter+
					SourceStyle.Render(line[:c])+
					CurrentOpStyle.Render(string(line[c]))+
					SourceStyle.Render(line[c+1:]))
				continue
			}
		}
		line, _ := sourceColumns(lines[i], -1, lineWidth)
		rows = append(rows, gutter+SourceStyle.Render(line))
	}
	for len(rows) < 2*sourceRadius+1 {
		rows = append(rows, "")
	}
	return SourcePanelStyle.Width(m.width - 2).Render(strings.Join(rows, "\n"))
}

// renderOutput renders the scrollable output pane.
func (m Model) renderOutput() string {
	label := TapeLabelStyle.Render(fmt.Sprintf("output  %d bytes", m.out.Len()))
	return OutputPanelStyle.Width(m.width - 2).Render(label + "\n" + m.viewport.View())
}

// renderStatusBar renders step count, pointer, ip and machine state.
func (m Model) renderStatusBar() string {
	info := fmt.Sprintf("step %d  ip %d/%d  ptr %d",
		m.machine.Steps(), m.machine.IP(), m.machine.Program().Len(), m.machine.Tape().Pointer())

	label := m.stateLabel()
	var state string
	switch {
	case m.err != nil:
		state = StatusErrorStyle.Render(label)
	case m.machine.Done():
		state = StatusDoneStyle.Render(label)
	case m.running:
		state = StatusRunningStyle.Render(m.spinner.View() + " " + label)
	default:
		state = label
	}
	return StatusBarStyle.Render(info+"  "+state) + "\n"
}

// stateLabel names the machine state for the status bar.
func (m Model) stateLabel() string {
	switch {
	case m.err != nil:
		return "error: " + m.err.Error()
	case m.machine.Done():
		return "done"
	case m.running:
		return "running"
	}
	return "paused"
}

// renderHelpBar renders keyboard shortcuts.
func (m Model) renderHelpBar() string {
	hints := []string{
		RenderKeyHint("s/space", "step"),
		RenderKeyHint("r", "run"),
		RenderKeyHint("p", "pause"),
		RenderKeyHint("g", "restart"),
		RenderKeyHint("↑/↓", "scroll output"),
		RenderKeyHint("q", "quit"),
	}
	return HelpStyle.Render(strings.Join(hints, "  "))
}

// tapeCellCount picks how many cells fit the terminal width.
func tapeCellCount(width int) int {
	count := (width - 6) / 3
	if count < 4 {
		count = 4
	}
	if count > 32 {
		count = 32
	}
	return count
}

// tapeWindow picks the half-open cell range [start, end) to display so
// that ptr sits mid-window, clamped to the tape ends.
func tapeWindow(ptr, tapeLen, count int) (start, end int) {
	if count > tapeLen {
		count = tapeLen
	}
	start = ptr - count/2
	if start < 0 {
		start = 0
	}
	end = start + count
	if end > tapeLen {
		end = tapeLen
		start = end - count
	}
	return start, end
}

// sourceWindow picks the half-open line range [from, to) to display so
// that line cur sits mid-window. cur < 0 means no current line; the
// window then starts at the top.
func sourceWindow(cur, total, radius int) (from, to int) {
	if cur < 0 {
		cur = 0
	}
	from = cur - radius
	if from < 0 {
		from = 0
	}
	to = from + 2*radius + 1
	if to > total {
		to = total
		from = to - (2*radius + 1)
		if from < 0 {
			from = 0
		}
	}
	return from, to
}

// sourceColumns trims line to at most width bytes, keeping column col in
// view. It returns the trimmed line and the column of col within it.
func sourceColumns(line string, col, width int) (string, int) {
	if width <= 0 || len(line) <= width {
		return line, col
	}
	start := 0
	if col >= width {
		start = col - width/2
		if start+width > len(line) {
			start = len(line) - width
		}
	}
	return line[start : start+width], col - start
}

// Run starts the debugger and blocks until the user quits.
func Run(cfg Config) error {
	model, err := New(cfg)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("debugger: %w", err)
	}
	return nil
}

package debugger

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chazu/brainfuck/vm"
)

func newTestModel(t *testing.T, src, input string, opts ...vm.Option) Model {
	t.Helper()
	m, err := New(Config{
		Name:    "test",
		Source:  []byte(src),
		Input:   []byte(input),
		Options: opts,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ============ Model Tests ============

func TestNewRejectsBadSource(t *testing.T) {
	if _, err := New(Config{Source: []byte("[")}); err == nil {
		t.Fatal("New accepted a program with an unmatched bracket")
	}
}

func TestNewStartsPaused(t *testing.T) {
	m := newTestModel(t, "+++", "")
	if got := m.stateLabel(); got != "paused" {
		t.Errorf("stateLabel() = %q, want paused", got)
	}
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("Steps() = %d, want 0", got)
	}
}

func TestStepKeyAdvancesMachine(t *testing.T) {
	m := newTestModel(t, "+++", "")

	m, _ = press(t, m, runeKey("s"))
	if got := m.machine.Steps(); got != 1 {
		t.Errorf("after s: Steps() = %d, want 1", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if got := m.machine.Steps(); got != 2 {
		t.Errorf("after space: Steps() = %d, want 2", got)
	}
}

func TestStepKeyCollectsOutput(t *testing.T) {
	m := newTestModel(t, "+.", "")
	m, _ = press(t, m, runeKey("s"))
	m, _ = press(t, m, runeKey("s"))
	if got := m.out.String(); got != "\x01" {
		t.Errorf("output = %q, want \\x01", got)
	}
}

func TestStepKeyIgnoredWhenDone(t *testing.T) {
	m := newTestModel(t, "just a comment", "")
	if !m.machine.Done() {
		t.Fatal("comment-only program should start done")
	}
	m, _ = press(t, m, runeKey("s"))
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("Steps() = %d, want 0", got)
	}
	if got := m.stateLabel(); got != "done" {
		t.Errorf("stateLabel() = %q, want done", got)
	}
}

func TestRunKeyDrivesMachineToCompletion(t *testing.T) {
	m := newTestModel(t, "++[>+<-]", "")

	m, cmd := press(t, m, runeKey("r"))
	if !m.running {
		t.Fatal("r did not enter run mode")
	}
	if cmd == nil {
		t.Fatal("r returned no slice command")
	}

	msg := cmd()
	tick, ok := msg.(stepTickMsg)
	if !ok {
		t.Fatalf("run command returned %T, want stepTickMsg", msg)
	}
	next, _ := m.Update(tick)
	m = next.(Model)

	if m.running {
		t.Error("still running after the program finished")
	}
	if !m.machine.Done() {
		t.Error("machine not done after run")
	}
	if got := m.stateLabel(); got != "done" {
		t.Errorf("stateLabel() = %q, want done", got)
	}
}

func TestRunSlicesAreBounded(t *testing.T) {
	m := newTestModel(t, "+[]", "")

	m, cmd := press(t, m, runeKey("r"))

	next, followup := m.Update(cmd())
	m = next.(Model)
	if got := m.machine.Steps(); got != runBatch {
		t.Errorf("Steps() = %d after one slice, want %d", got, runBatch)
	}
	if !m.running {
		t.Error("run mode ended while the program still loops")
	}
	if followup == nil {
		t.Error("no follow-up slice was scheduled")
	}
}

func TestPauseKeyStopsRun(t *testing.T) {
	m := newTestModel(t, "+[]", "")

	m, cmd := press(t, m, runeKey("r"))
	msg := cmd()

	m, _ = press(t, m, runeKey("p"))
	if m.running {
		t.Fatal("p did not leave run mode")
	}

	next, followup := m.Update(msg)
	m = next.(Model)
	if m.running {
		t.Error("pending tick restarted run mode")
	}
	if followup != nil {
		t.Error("paused model scheduled another slice")
	}
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("paused model still executed steps: Steps() = %d", got)
	}
	if got := m.stateLabel(); got != "paused" {
		t.Errorf("stateLabel() = %q, want paused", got)
	}
}

func TestMachineErrorShownInStatus(t *testing.T) {
	m := newTestModel(t, ">", "", vm.WithTapeLength(1))

	m, _ = press(t, m, runeKey("s"))
	if m.err == nil {
		t.Fatal("stepping off the tape did not record an error")
	}
	if got := m.stateLabel(); !strings.HasPrefix(got, "error: ") {
		t.Errorf("stateLabel() = %q, want error prefix", got)
	}

	m, _ = press(t, m, runeKey("s"))
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("stepping after an error advanced the machine: Steps() = %d", got)
	}
}

func TestStepBudgetErrorShownInStatus(t *testing.T) {
	m := newTestModel(t, "+[]", "", vm.WithStepBudget(5))

	m, cmd := press(t, m, runeKey("r"))
	msg := cmd()

	next, _ := m.Update(msg)
	m = next.(Model)
	if m.err == nil {
		t.Fatal("exhausted budget did not record an error")
	}
	if m.running {
		t.Error("run mode survived an exhausted budget")
	}
}

func TestRestartKeyResetsMachine(t *testing.T) {
	m := newTestModel(t, "+.", "")
	m, _ = press(t, m, runeKey("s"))
	m, _ = press(t, m, runeKey("s"))
	if m.out.Len() == 0 {
		t.Fatal("no output before restart")
	}

	oldGen := m.gen
	m, _ = press(t, m, runeKey("g"))
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("Steps() = %d after restart, want 0", got)
	}
	if m.out.Len() != 0 {
		t.Errorf("output survived restart: %q", m.out.String())
	}
	if m.gen == oldGen {
		t.Error("restart did not bump the machine generation")
	}
}

func TestRestartClearsError(t *testing.T) {
	m := newTestModel(t, ">", "", vm.WithTapeLength(1))
	m, _ = press(t, m, runeKey("s"))
	if m.err == nil {
		t.Fatal("no error to clear")
	}

	m, _ = press(t, m, runeKey("g"))
	if m.err != nil {
		t.Errorf("restart kept the error: %v", m.err)
	}
	if got := m.stateLabel(); got != "paused" {
		t.Errorf("stateLabel() = %q, want paused", got)
	}
}

func TestStaleTickDropped(t *testing.T) {
	m := newTestModel(t, "+[]", "")

	m, cmd := press(t, m, runeKey("r"))
	msg := cmd().(stepTickMsg)

	m, _ = press(t, m, runeKey("g"))
	next, followup := m.Update(msg)
	m = next.(Model)

	if m.running {
		t.Error("stale tick restarted run mode")
	}
	if followup != nil {
		t.Error("stale tick scheduled another slice")
	}
	if got := m.machine.Steps(); got != 0 {
		t.Errorf("Steps() = %d after restart, want 0", got)
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, "+", "")
	for _, key := range []tea.KeyMsg{runeKey("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := press(t, m, key)
		if cmd == nil {
			t.Fatalf("%s returned no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not quit", key)
		}
	}
}

func TestViewBeforeReady(t *testing.T) {
	m := newTestModel(t, "+", "")
	if got := m.View(); !strings.Contains(got, "starting debugger") {
		t.Errorf("View() before the first resize = %q", got)
	}
}

func TestViewAfterResize(t *testing.T) {
	m := newTestModel(t, "++[>+<-]", "")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = next.(Model)
	if !m.ready {
		t.Fatal("resize did not mark the model ready")
	}

	view := m.View()
	for _, want := range []string{"bf debug", "test", "tape", "output", "step 0", "paused", "quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() is missing %q", want)
		}
	}
}

func TestInputServedFromBuffer(t *testing.T) {
	m := newTestModel(t, ",.", "A")
	m, _ = press(t, m, runeKey("s"))
	m, _ = press(t, m, runeKey("s"))
	if got := m.out.String(); got != "A" {
		t.Errorf("output = %q, want A", got)
	}
}

// ============ Window Helper Tests ============

func TestTapeWindowCentersPointer(t *testing.T) {
	start, end := tapeWindow(100, 30000, 24)
	if start != 88 || end != 112 {
		t.Errorf("tapeWindow(100, 30000, 24) = (%d, %d), want (88, 112)", start, end)
	}
}

func TestTapeWindowClampsAtStart(t *testing.T) {
	start, end := tapeWindow(3, 30000, 24)
	if start != 0 || end != 24 {
		t.Errorf("tapeWindow(3, 30000, 24) = (%d, %d), want (0, 24)", start, end)
	}
}

func TestTapeWindowClampsAtEnd(t *testing.T) {
	start, end := tapeWindow(29999, 30000, 24)
	if start != 29976 || end != 30000 {
		t.Errorf("tapeWindow(29999, 30000, 24) = (%d, %d), want (29976, 30000)", start, end)
	}
}

func TestTapeWindowSmallTape(t *testing.T) {
	start, end := tapeWindow(2, 5, 24)
	if start != 0 || end != 5 {
		t.Errorf("tapeWindow(2, 5, 24) = (%d, %d), want (0, 5)", start, end)
	}
}

func TestTapeCellCount(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{80, 24},
		{10, 4},
		{200, 32},
	}
	for _, tt := range tests {
		if got := tapeCellCount(tt.width); got != tt.want {
			t.Errorf("tapeCellCount(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestSourceWindow(t *testing.T) {
	tests := []struct {
		cur, total, radius int
		from, to           int
	}{
		{5, 100, 2, 3, 8},
		{0, 100, 2, 0, 5},
		{99, 100, 2, 95, 100},
		{-1, 3, 2, 0, 3},
	}
	for _, tt := range tests {
		from, to := sourceWindow(tt.cur, tt.total, tt.radius)
		if from != tt.from || to != tt.to {
			t.Errorf("sourceWindow(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.cur, tt.total, tt.radius, from, to, tt.from, tt.to)
		}
	}
}

func TestSourceColumnsShortLineUntouched(t *testing.T) {
	line, col := sourceColumns("+++", 1, 20)
	if line != "+++" || col != 1 {
		t.Errorf("sourceColumns = (%q, %d), want (+++, 1)", line, col)
	}
}

func TestSourceColumnsTrimsAroundColumn(t *testing.T) {
	long := strings.Repeat("+", 100)

	line, col := sourceColumns(long, 90, 20)
	if len(line) != 20 || col != 10 {
		t.Errorf("sourceColumns(long, 90, 20) = (len %d, col %d), want (20, 10)", len(line), col)
	}

	line, col = sourceColumns(long, 5, 20)
	if len(line) != 20 || col != 5 {
		t.Errorf("sourceColumns(long, 5, 20) = (len %d, col %d), want (20, 5)", len(line), col)
	}
}

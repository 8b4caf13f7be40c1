package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/brainfuck/program"
)

// ---------------------------------------------------------------------------
// Position mapping helpers
// ---------------------------------------------------------------------------

func TestOffsetFor_SingleLine(t *testing.T) {
	text := "+++."
	got := offsetFor(text, protocol.Position{Line: 0, Character: 3})
	if got != 3 {
		t.Errorf("offsetFor = %d, want 3", got)
	}
}

func TestOffsetFor_MultiLine(t *testing.T) {
	text := "+++\n>>>\n[-]"
	got := offsetFor(text, protocol.Position{Line: 2, Character: 1})
	if got != 9 {
		t.Errorf("offsetFor = %d, want 9", got)
	}
}

func TestOffsetFor_ColumnPastLineEnd(t *testing.T) {
	text := "++\n--"
	got := offsetFor(text, protocol.Position{Line: 0, Character: 99})
	// Clamped to the line, including its newline.
	if got != 3 {
		t.Errorf("offsetFor = %d, want 3", got)
	}
}

func TestOffsetFor_LineBeyondDocument(t *testing.T) {
	text := "+"
	got := offsetFor(text, protocol.Position{Line: 5, Character: 0})
	if got != len(text) {
		t.Errorf("offsetFor = %d, want %d", got, len(text))
	}
}

func TestInstructionAt(t *testing.T) {
	prog := program.Scan([]byte("a+b-"))
	if idx := instructionAt(prog, 1); idx != 0 {
		t.Errorf("instructionAt(1) = %d, want 0", idx)
	}
	if idx := instructionAt(prog, 3); idx != 1 {
		t.Errorf("instructionAt(3) = %d, want 1", idx)
	}
	// Comment byte
	if idx := instructionAt(prog, 0); idx != -1 {
		t.Errorf("instructionAt(0) = %d, want -1", idx)
	}
}

func TestInstructionAt_ShebangIsInert(t *testing.T) {
	prog := program.Scan([]byte("#!/usr/bin/env -S bf run\n+"))
	// The '-' inside the shebang line is not an instruction.
	if idx := instructionAt(prog, 15); idx != -1 {
		t.Errorf("instructionAt(15) = %d, want -1", idx)
	}
	if idx := instructionAt(prog, 25); idx != 0 {
		t.Errorf("instructionAt(25) = %d, want 0", idx)
	}
}

func TestRangeBetween(t *testing.T) {
	src := []byte("+\n[-]")
	rng := rangeBetween(src, 2, 4)
	if rng.Start.Line != 1 || rng.Start.Character != 0 {
		t.Errorf("start = %d:%d, want 1:0", rng.Start.Line, rng.Start.Character)
	}
	if rng.End.Line != 1 || rng.End.Character != 3 {
		t.Errorf("end = %d:%d, want 1:3", rng.End.Line, rng.End.Character)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticsFor_ValidDocument(t *testing.T) {
	diags := diagnosticsFor("+[>+<-].")
	if diags == nil {
		t.Fatal("diagnostics should be an empty list, not nil")
	}
	if len(diags) != 0 {
		t.Errorf("got %d diagnostics for a valid document, want 0", len(diags))
	}
}

func TestDiagnosticsFor_UnmatchedClose(t *testing.T) {
	diags := diagnosticsFor("++\nxx]\n")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 2 {
		t.Errorf("range start = %d:%d, want 1:2", d.Range.Start.Line, d.Range.Start.Character)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("diagnostic should have severity Error")
	}
	if d.Source == nil || *d.Source != "bf" {
		t.Error("diagnostic should carry source bf")
	}
	if !strings.Contains(d.Message, "unmatched") {
		t.Errorf("message = %q, want it to mention the unmatched bracket", d.Message)
	}
}

func TestDiagnosticsFor_UnmatchedOpen(t *testing.T) {
	diags := diagnosticsFor("[[]")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Range.Start.Line != 0 || diags[0].Range.Start.Character != 0 {
		t.Errorf("range start = %d:%d, want 0:0",
			diags[0].Range.Start.Line, diags[0].Range.Start.Character)
	}
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func hoverValue(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("hover returned nil")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("hover markup kind = %q, want %q", mc.Kind, protocol.MarkupKindMarkdown)
	}
	return mc.Value
}

func TestHover_Instruction(t *testing.T) {
	s := NewLSP("test")
	h := s.hover("+++", protocol.Position{Line: 0, Character: 1})
	v := hoverValue(t, h)
	if !strings.Contains(v, "increment") {
		t.Errorf("hover = %q, want increment semantics", v)
	}
}

func TestHover_BracketShowsMatch(t *testing.T) {
	s := NewLSP("test")
	h := s.hover("+[\n-]", protocol.Position{Line: 0, Character: 1})
	v := hoverValue(t, h)
	if !strings.Contains(v, "Matches `]` at line 2, column 2") {
		t.Errorf("hover = %q, want the match position", v)
	}
}

func TestHover_CommentByte(t *testing.T) {
	s := NewLSP("test")
	if h := s.hover("add one +", protocol.Position{Line: 0, Character: 2}); h != nil {
		t.Errorf("hover on a comment byte = %v, want nil", h)
	}
}

func TestHover_UnmatchedBracketStillDescribesOp(t *testing.T) {
	s := NewLSP("test")
	h := s.hover("[", protocol.Position{Line: 0, Character: 0})
	v := hoverValue(t, h)
	if strings.Contains(v, "Matches") {
		t.Errorf("hover = %q, unmatched bracket should not report a match", v)
	}
}

// ---------------------------------------------------------------------------
// Definition and references
// ---------------------------------------------------------------------------

func TestBracketMatch_OpenToClose(t *testing.T) {
	src := []byte("+[>[-]<]")
	prog, idx, match, ok := bracketMatch(src, 1)
	if !ok {
		t.Fatal("bracketMatch failed on an outer open bracket")
	}
	if idx != 1 || prog.Offsets[match] != 7 {
		t.Errorf("idx = %d, match offset = %d, want 1 and 7", idx, prog.Offsets[match])
	}
}

func TestBracketMatch_CloseToOpen(t *testing.T) {
	src := []byte("+[>[-]<]")
	prog, _, match, ok := bracketMatch(src, 5)
	if !ok {
		t.Fatal("bracketMatch failed on an inner close bracket")
	}
	if prog.Offsets[match] != 3 {
		t.Errorf("match offset = %d, want 3", prog.Offsets[match])
	}
}

func TestBracketMatch_NotABracket(t *testing.T) {
	if _, _, _, ok := bracketMatch([]byte("+[-]"), 0); ok {
		t.Error("bracketMatch should fail on a non-bracket instruction")
	}
	if _, _, _, ok := bracketMatch([]byte("x[-]"), 0); ok {
		t.Error("bracketMatch should fail on a comment byte")
	}
}

func TestBracketMatch_UnresolvableDocument(t *testing.T) {
	if _, _, _, ok := bracketMatch([]byte("[[]"), 1); ok {
		t.Error("bracketMatch should fail when the document has unmatched brackets")
	}
}

// ---------------------------------------------------------------------------
// Document symbols
// ---------------------------------------------------------------------------

func TestLoopSymbols_Nesting(t *testing.T) {
	src := []byte("+[>[-]<][.]")
	symbols := loopSymbols(src, program.Scan(src))

	if len(symbols) != 2 {
		t.Fatalf("got %d top-level symbols, want 2", len(symbols))
	}
	outer := symbols[0]
	if len(outer.Children) != 1 {
		t.Fatalf("outer loop has %d children, want 1", len(outer.Children))
	}
	if outer.Range.Start.Character != 1 || outer.Range.End.Character != 8 {
		t.Errorf("outer range = %d..%d, want 1..8",
			outer.Range.Start.Character, outer.Range.End.Character)
	}
	inner := outer.Children[0]
	if inner.Range.Start.Character != 3 || inner.Range.End.Character != 6 {
		t.Errorf("inner range = %d..%d, want 3..6",
			inner.Range.Start.Character, inner.Range.End.Character)
	}
	if len(symbols[1].Children) != 0 {
		t.Errorf("second loop has %d children, want 0", len(symbols[1].Children))
	}
}

func TestLoopSymbols_SkipsUnmatched(t *testing.T) {
	src := []byte("]]")
	if symbols := loopSymbols(src, program.Scan(src)); len(symbols) != 0 {
		t.Errorf("got %d symbols for unmatched brackets, want 0", len(symbols))
	}
}

func TestLoopSymbols_NoLoops(t *testing.T) {
	src := []byte("+++.")
	if symbols := loopSymbols(src, program.Scan(src)); len(symbols) != 0 {
		t.Errorf("got %d symbols without loops, want 0", len(symbols))
	}
}

// ---------------------------------------------------------------------------
// Document store and misc
// ---------------------------------------------------------------------------

func TestDocumentStore(t *testing.T) {
	s := NewLSP("test")

	// Simulate didOpen
	s.mu.Lock()
	s.docs["file:///hello.bf"] = "+[-]"
	s.mu.Unlock()

	s.mu.Lock()
	text, ok := s.docs["file:///hello.bf"]
	s.mu.Unlock()
	if !ok {
		t.Error("document should be stored after open")
	}
	if text != "+[-]" {
		t.Errorf("document text = %q, want %q", text, "+[-]")
	}

	// Simulate didClose
	s.mu.Lock()
	delete(s.docs, "file:///hello.bf")
	s.mu.Unlock()

	s.mu.Lock()
	_, ok = s.docs["file:///hello.bf"]
	s.mu.Unlock()
	if ok {
		t.Error("document should be removed after close")
	}
}

func TestBoolPtr(t *testing.T) {
	p := boolPtr(true)
	if p == nil {
		t.Fatal("boolPtr should not return nil")
	}
	if *p != true {
		t.Errorf("boolPtr(true) = %v, want true", *p)
	}

	p = boolPtr(false)
	if *p != false {
		t.Errorf("boolPtr(false) = %v, want false", *p)
	}
}

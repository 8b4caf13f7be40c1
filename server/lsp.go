// Package server implements the bf language server.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/brainfuck/program"

	_ "github.com/tliron/commonlog/simple"
)

const (
	lspName          = "bf-lsp"
	diagnosticSource = "bf"
)

// LspServer serves editor features for .bf documents over stdio.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new language server reporting the given version.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentReferences:     s.textDocumentReferences,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "bf language server initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return s.hover(text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	src := []byte(text)
	prog, _, match, ok := bracketMatch(src, offsetFor(text, params.Position))
	if !ok {
		return nil, nil
	}
	return []protocol.Location{
		{URI: uri, Range: charRange(src, prog.Offsets[match])},
	}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	src := []byte(text)
	prog, idx, match, found := bracketMatch(src, offsetFor(text, params.Position))
	if !found {
		return nil, nil
	}
	open, closing := idx, match
	if open > closing {
		open, closing = closing, open
	}
	return []protocol.Location{
		{URI: uri, Range: charRange(src, prog.Offsets[open])},
		{URI: uri, Range: charRange(src, prog.Offsets[closing])},
	}, nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	src := []byte(text)
	symbols := loopSymbols(src, program.Scan(src))
	if len(symbols) == 0 {
		return nil, nil
	}
	return symbols, nil
}

// --- Resolution-backed logic ---

// opDocs holds the hover line for each instruction.
var opDocs = map[program.Op]string{
	program.OpRight: "move the pointer one cell right",
	program.OpLeft:  "move the pointer one cell left",
	program.OpInc:   "increment the current cell, wrapping 255 to 0",
	program.OpDec:   "decrement the current cell, wrapping 0 to 255",
	program.OpOut:   "write the current cell to output",
	program.OpIn:    "read one input byte into the current cell",
	program.OpOpen:  "enter the loop, or jump past the matching ] when the current cell is 0",
	program.OpClose: "jump back into the loop when the current cell is not 0",
}

func (s *LspServer) hover(text string, pos protocol.Position) *protocol.Hover {
	src := []byte(text)
	prog := program.Scan(src)
	idx := instructionAt(prog, offsetFor(text, pos))
	if idx < 0 {
		return nil
	}

	op := prog.Ops[idx]
	var b strings.Builder
	fmt.Fprintf(&b, "`%c`: %s", byte(op), opDocs[op])

	if op == program.OpOpen || op == program.OpClose {
		if jt, err := program.Resolve(prog); err == nil {
			matchOffset := prog.Offsets[jt[idx]]
			match := program.PositionFor(src, matchOffset)
			fmt.Fprintf(&b, "\n\nMatches `%c` at line %d, column %d.",
				byte(prog.Ops[jt[idx]]), match.Line, match.Column)
		}
	}

	rng := charRange(src, prog.Offsets[idx])
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &rng,
	}
}

// bracketMatch resolves the bracket under the given source offset to
// its instruction index and the index of its match. ok is false when
// the offset is not on a bracket or the document does not resolve.
func bracketMatch(src []byte, offset int) (prog program.Program, idx, match int, ok bool) {
	prog = program.Scan(src)
	idx = instructionAt(prog, offset)
	if idx < 0 {
		return prog, 0, 0, false
	}
	if op := prog.Ops[idx]; op != program.OpOpen && op != program.OpClose {
		return prog, 0, 0, false
	}

	jt, err := program.Resolve(prog)
	if err != nil {
		return prog, 0, 0, false
	}
	return prog, idx, jt[idx], true
}

// loopSymbols builds one document symbol per loop, nesting inner loops
// as children. Unmatched brackets are skipped; diagnostics report them.
func loopSymbols(src []byte, prog program.Program) []protocol.DocumentSymbol {
	type frame struct {
		open     int
		children []protocol.DocumentSymbol
	}

	var top []protocol.DocumentSymbol
	var stack []frame

	for i, op := range prog.Ops {
		switch op {
		case program.OpOpen:
			stack = append(stack, frame{open: i})
		case program.OpClose:
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			openPos := program.PositionFor(src, prog.Offsets[f.open])
			detail := fmt.Sprintf("%d ops", i-f.open-1)
			kind := protocol.SymbolKindOperator
			sym := protocol.DocumentSymbol{
				Name:           fmt.Sprintf("loop at %d:%d", openPos.Line, openPos.Column),
				Detail:         &detail,
				Kind:           kind,
				Range:          rangeBetween(src, prog.Offsets[f.open], prog.Offsets[i]),
				SelectionRange: charRange(src, prog.Offsets[f.open]),
				Children:       f.children,
			}
			if len(stack) > 0 {
				stack[len(stack)-1].children = append(stack[len(stack)-1].children, sym)
			} else {
				top = append(top, sym)
			}
		}
	}
	return top
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnosticsFor(text),
	})
}

// diagnosticsFor resolves the document and reports its structural
// error, if any. Always non-nil: an empty list clears stale squiggles.
func diagnosticsFor(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	src := []byte(text)
	if _, err := program.Resolve(program.Scan(src)); err != nil {
		var serr *program.StructuralError
		if errors.As(err, &serr) {
			severity := protocol.DiagnosticSeverityError
			source := diagnosticSource
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    charRange(src, serr.Offset),
				Severity: &severity,
				Source:   &source,
				Message:  err.Error(),
			})
		}
	}
	return diagnostics
}

// --- Position mapping helpers ---

// offsetFor converts an LSP position to a byte offset. Columns are
// byte-wise; .bf sources are ASCII.
func offsetFor(text string, pos protocol.Position) int {
	lines := strings.SplitAfter(text, "\n")
	if int(pos.Line) >= len(lines) {
		return len(text)
	}

	offset := 0
	for i := 0; i < int(pos.Line); i++ {
		offset += len(lines[i])
	}
	col := int(pos.Character)
	if col > len(lines[pos.Line]) {
		col = len(lines[pos.Line])
	}
	return offset + col
}

// instructionAt maps a source offset to its instruction index, or -1
// when the offset holds no operative instruction.
func instructionAt(p program.Program, offset int) int {
	i := sort.SearchInts(p.Offsets, offset)
	if i < len(p.Offsets) && p.Offsets[i] == offset {
		return i
	}
	return -1
}

// rangeBetween covers the source bytes [from, to] as an LSP range.
func rangeBetween(src []byte, from, to int) protocol.Range {
	start := program.PositionFor(src, from)
	end := program.PositionFor(src, to)
	return protocol.Range{
		Start: protocol.Position{
			Line:      protocol.UInteger(start.Line - 1),
			Character: protocol.UInteger(start.Column - 1),
		},
		End: protocol.Position{
			Line:      protocol.UInteger(end.Line - 1),
			Character: protocol.UInteger(end.Column),
		},
	}
}

func charRange(src []byte, offset int) protocol.Range {
	return rangeBetween(src, offset, offset)
}

func boolPtr(b bool) *bool {
	return &b
}

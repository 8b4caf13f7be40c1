package program

import "fmt"

// ---------------------------------------------------------------------------
// Bracket resolution
// ---------------------------------------------------------------------------

// JumpTable maps each bracket instruction to the index of its match:
// jt[i] is the matching ] for a [ at i, and the matching [ for a ] at i.
// Entries for the other six instructions are zero and never consulted.
type JumpTable []int

// StructuralError reports an unmatched bracket. It is produced entirely
// before execution begins; a program that resolves cleanly can never
// fail structurally at runtime.
type StructuralError struct {
	Offset  int  // byte offset of the unmatched bracket in the source
	Line    int  // 1-based
	Column  int  // 1-based
	Bracket byte // '[' or ']'
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("line %d, column %d: unmatched %q", e.Line, e.Column, e.Bracket)
}

// Resolve pairs up the brackets of p in a single pass, using an explicit
// stack of open-bracket indices. A ] with no open [ fails at its own
// position; when brackets are left open at end of input, the error names
// the first unmatched [. Resolve reads p without modifying it, so
// resolving the same program twice yields identical tables.
func Resolve(p Program) (JumpTable, error) {
	jt := make(JumpTable, len(p.Ops))
	var stack []int

	for i, op := range p.Ops {
		switch op {
		case OpOpen:
			stack = append(stack, i)
		case OpClose:
			if len(stack) == 0 {
				return nil, structuralErrorAt(p, i)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jt[open] = i
			jt[i] = open
		}
	}

	if len(stack) > 0 {
		return nil, structuralErrorAt(p, stack[0])
	}
	return jt, nil
}

func structuralErrorAt(p Program, instr int) *StructuralError {
	offset := p.Offsets[instr]
	pos := PositionFor(p.Src, offset)
	return &StructuralError{
		Offset:  offset,
		Line:    pos.Line,
		Column:  pos.Column,
		Bracket: byte(p.Ops[instr]),
	}
}

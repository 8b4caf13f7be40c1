// Package program handles Brainfuck source text: scanning it into an
// instruction sequence, mapping instructions back to source positions,
// and resolving bracket pairs into a jump table.
package program

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Op is a single executable Brainfuck instruction. The values are the
// source bytes themselves; every other byte in a program is a comment.
type Op byte

const (
	OpRight Op = '>' // move the cell pointer right
	OpLeft  Op = '<' // move the cell pointer left
	OpInc   Op = '+' // increment the current cell
	OpDec   Op = '-' // decrement the current cell
	OpOut   Op = '.' // write the current cell to output
	OpIn    Op = ',' // read one byte of input into the current cell
	OpOpen  Op = '[' // jump past the matching ] when the cell is zero
	OpClose Op = ']' // jump back to the matching [ when the cell is nonzero
)

// IsOp reports whether b is one of the eight operative bytes.
func IsOp(b byte) bool {
	switch Op(b) {
	case OpRight, OpLeft, OpInc, OpDec, OpOut, OpIn, OpOpen, OpClose:
		return true
	}
	return false
}

// Program is a scanned Brainfuck program. Ops holds the executable
// instructions in order; Offsets holds, for each instruction, its byte
// offset in Src. Src is retained for diagnostics and snapshots.
type Program struct {
	Src     []byte
	Ops     []Op
	Offsets []int
}

// Len returns the number of executable instructions.
func (p Program) Len() int { return len(p.Ops) }

// Scan extracts the executable instructions from src. Inert bytes are
// dropped, and a leading shebang line is skipped so .bf files can run
// as scripts. Recorded offsets always refer to the original src, shebang
// included. Scan cannot fail: any byte sequence is a valid program.
func Scan(src []byte) Program {
	start := 0
	if bytes.HasPrefix(src, []byte("#!")) {
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			start = i + 1
		} else {
			start = len(src)
		}
	}

	p := Program{Src: src}
	for i := start; i < len(src); i++ {
		if IsOp(src[i]) {
			p.Ops = append(p.Ops, Op(src[i]))
			p.Offsets = append(p.Offsets, i)
		}
	}
	return p
}

// Load reads and scans the program at path.
func Load(path string) (Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("read program: %w", err)
	}
	return Scan(src), nil
}

// LoadReader reads r to EOF and scans the result.
func LoadReader(r io.Reader) (Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Program{}, fmt.Errorf("read program: %w", err)
	}
	return Scan(src), nil
}

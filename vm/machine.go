package vm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/brainfuck/program"
)

// flusher is satisfied by buffered writers such as bufio.Writer. A raw
// writer that cannot flush is never flushed.
type flusher interface{ Flush() error }

// Machine executes a resolved Brainfuck program against a tape and a
// pair of byte streams. A Machine is single-use state: create one per
// run, or restore one from a snapshot.
type Machine struct {
	prog  program.Program
	jumps program.JumpTable
	tape  Tape
	ip    int
	steps uint64
	meter StepMeter
	done  bool

	in       io.ByteReader
	out      io.ByteWriter
	outFlush flusher // nil when out cannot flush
	cfg      config
}

// New builds a machine for p: resolves its brackets, allocates the tape,
// and wires the streams. A structural error in p surfaces here, before
// execution can begin.
func New(p program.Program, in io.ByteReader, out io.ByteWriter, opts ...Option) (*Machine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tapeLength < 1 {
		return nil, fmt.Errorf("tape length %d, need at least 1 cell", cfg.tapeLength)
	}

	jumps, err := program.Resolve(p)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		prog:  p,
		jumps: jumps,
		tape:  newTape(cfg.tapeLength),
		meter: newStepMeter(cfg.stepBudget),
		in:    in,
		out:   out,
		cfg:   cfg,
	}
	m.outFlush, _ = out.(flusher)
	if m.prog.Len() == 0 {
		m.done = true
	}
	return m, nil
}

// cancelCheckInterval is how many steps pass between context checks in
// Run. A power of two so the check stays off the hot path.
const cancelCheckInterval = 1 << 14

// Run executes until the program terminates, the step budget runs out,
// ctx is canceled, or an instruction fails. A nil return means normal
// termination. After ErrStepBudget the machine is still valid: snapshot
// it, or extend the budget and call Run again.
func (m *Machine) Run(ctx context.Context) error {
	for !m.done {
		if m.steps%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if err := m.step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction. The debugger and the
// snapshot-at-step path drive the machine this way.
func (m *Machine) Step() error {
	if m.done {
		return ErrHalted
	}
	return m.step()
}

func (m *Machine) step() error {
	if err := m.meter.consume(); err != nil {
		return err
	}

	switch m.prog.Ops[m.ip] {

	// ============ Pointer Moves ============

	case program.OpRight:
		if m.tape.ptr+1 == len(m.tape.cells) {
			return &TapeBoundsError{Pointer: m.tape.ptr + 1, Length: m.tape.Len(), Offset: m.offsetAt(m.ip)}
		}
		m.tape.ptr++

	case program.OpLeft:
		if m.tape.ptr == 0 {
			return &TapeBoundsError{Pointer: -1, Length: m.tape.Len(), Offset: m.offsetAt(m.ip)}
		}
		m.tape.ptr--

	// ============ Cell Arithmetic ============

	case program.OpInc:
		m.tape.cells[m.tape.ptr]++

	case program.OpDec:
		m.tape.cells[m.tape.ptr]--

	// ============ Byte I/O ============

	case program.OpOut:
		if err := m.out.WriteByte(m.tape.cells[m.tape.ptr]); err != nil {
			return &OutputError{Offset: m.offsetAt(m.ip), Err: err}
		}
		if m.cfg.flush && m.outFlush != nil {
			if err := m.outFlush.Flush(); err != nil {
				return &OutputError{Offset: m.offsetAt(m.ip), Err: err}
			}
		}

	case program.OpIn:
		if !m.cfg.flush && m.outFlush != nil {
			if err := m.outFlush.Flush(); err != nil {
				return &OutputError{Offset: m.offsetAt(m.ip), Err: err}
			}
		}
		b, err := m.in.ReadByte()
		switch {
		case err == nil:
			m.tape.cells[m.tape.ptr] = b
		case errors.Is(err, io.EOF):
			if m.cfg.eofPolicy == EOFHalt {
				m.done = true
				return nil
			}
			m.tape.cells[m.tape.ptr] = 0
		default:
			return &InputError{Offset: m.offsetAt(m.ip), Err: err}
		}

	// ============ Loops ============

	case program.OpOpen:
		if m.tape.cells[m.tape.ptr] == 0 {
			m.ip = m.jumps[m.ip]
		}

	case program.OpClose:
		if m.tape.cells[m.tape.ptr] != 0 {
			m.ip = m.jumps[m.ip]
		}
	}

	m.ip++
	m.steps++
	if m.ip == m.prog.Len() {
		m.done = true
	}
	return nil
}

func (m *Machine) offsetAt(ip int) int { return m.prog.Offsets[ip] }

// IP returns the index of the next instruction to execute.
func (m *Machine) IP() int { return m.ip }

// Steps returns how many instructions have executed so far.
func (m *Machine) Steps() uint64 { return m.steps }

// Done reports whether the machine has terminated.
func (m *Machine) Done() bool { return m.done }

// Tape exposes the machine's tape for inspection.
func (m *Machine) Tape() *Tape { return &m.tape }

// Program returns the program the machine is executing.
func (m *Machine) Program() program.Program { return m.prog }

// Meter exposes the machine's step meter.
func (m *Machine) Meter() *StepMeter { return &m.meter }

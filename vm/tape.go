package vm

// DefaultTapeLength is the tape size used when no option overrides it.
const DefaultTapeLength = 30000

// Tape is the machine's memory: a fixed run of byte cells and a pointer
// into them. The length is set once at machine creation; the pointer is
// kept inside [0, length) by the dispatch loop, which fails the run
// rather than wrap or grow.
type Tape struct {
	cells []byte
	ptr   int
}

func newTape(length int) Tape {
	return Tape{cells: make([]byte, length)}
}

// Len returns the number of cells.
func (t *Tape) Len() int { return len(t.cells) }

// Pointer returns the current cell index.
func (t *Tape) Pointer() int { return t.ptr }

// Cell returns the value of the current cell.
func (t *Tape) Cell() byte { return t.cells[t.ptr] }

// CellAt returns the value of cell i. It panics if i is out of range,
// like any slice access; callers index within [0, Len()).
func (t *Tape) CellAt(i int) byte { return t.cells[i] }

package vm

import "fmt"

// EOFPolicy decides what , does when input is exhausted.
type EOFPolicy int

const (
	// EOFZero writes 0 to the current cell and continues. This is the
	// default; well-formed programs treat a zero read as "no more input".
	EOFZero EOFPolicy = iota

	// EOFHalt ends the run normally. Made for piped input driving a
	// program that itself loops forever.
	EOFHalt
)

func (p EOFPolicy) String() string {
	switch p {
	case EOFZero:
		return "zero"
	case EOFHalt:
		return "halt"
	}
	return fmt.Sprintf("EOFPolicy(%d)", int(p))
}

// ParseEOFPolicy converts the textual form used by flags and manifests.
func ParseEOFPolicy(s string) (EOFPolicy, error) {
	switch s {
	case "zero":
		return EOFZero, nil
	case "halt":
		return EOFHalt, nil
	}
	return 0, fmt.Errorf("unknown eof policy %q (want \"zero\" or \"halt\")", s)
}

type config struct {
	tapeLength int
	eofPolicy  EOFPolicy
	flush      bool
	stepBudget uint64
}

func defaultConfig() config {
	return config{
		tapeLength: DefaultTapeLength,
		eofPolicy:  EOFZero,
		flush:      true,
	}
}

// Option configures a Machine at creation.
type Option func(*config)

// WithTapeLength sets the number of tape cells. New rejects lengths
// below one.
func WithTapeLength(n int) Option {
	return func(c *config) { c.tapeLength = n }
}

// WithEOFPolicy sets the behavior of , at end of input.
func WithEOFPolicy(p EOFPolicy) Option {
	return func(c *config) { c.eofPolicy = p }
}

// WithFlush controls output flushing when the output stream supports it.
// Enabled (the default), the machine flushes after every write so output
// appears as the program produces it. Disabled, it flushes before every
// read instead, so buffered prompts become visible before the machine
// blocks on input.
func WithFlush(enabled bool) Option {
	return func(c *config) { c.flush = enabled }
}

// WithStepBudget bounds the run to n executed instructions; Run and Step
// return ErrStepBudget once the budget is spent. Zero means unmetered.
func WithStepBudget(n uint64) Option {
	return func(c *config) { c.stepBudget = n }
}

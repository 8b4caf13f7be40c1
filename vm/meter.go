package vm

// StepMeter tracks instruction budget consumption. A zero limit means
// the meter is disabled and never exhausts.
type StepMeter struct {
	remaining uint64
	limit     uint64
}

func newStepMeter(limit uint64) StepMeter {
	return StepMeter{remaining: limit, limit: limit}
}

// consume spends one step. It reports ErrStepBudget when the budget ran
// out before this step.
func (sm *StepMeter) consume() error {
	if sm.limit == 0 {
		return nil
	}
	if sm.remaining == 0 {
		return ErrStepBudget
	}
	sm.remaining--
	return nil
}

// Extend grants n more steps. Extending an unmetered meter turns the
// budget on.
func (sm *StepMeter) Extend(n uint64) {
	sm.remaining += n
	sm.limit += n
}

// Remaining returns the steps left in the budget, or 0 for an unmetered
// meter.
func (sm *StepMeter) Remaining() uint64 { return sm.remaining }

// Limit returns the configured budget, 0 when unmetered.
func (sm *StepMeter) Limit() uint64 { return sm.limit }

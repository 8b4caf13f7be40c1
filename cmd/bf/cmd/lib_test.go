package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/brainfuck/program"
	"github.com/chazu/brainfuck/store"
	"github.com/chazu/brainfuck/vm"
)

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want store.Outcome
	}{
		{nil, store.OutcomeOK},
		{context.Canceled, store.OutcomeCanceled},
		{fmt.Errorf("run: %w", context.Canceled), store.OutcomeCanceled},
		{&program.StructuralError{Line: 1, Column: 1, Bracket: '['}, store.OutcomeStructural},
		{&vm.TapeBoundsError{Pointer: -1, Length: 10}, store.OutcomeRuntime},
		{vm.ErrStepBudget, store.OutcomeRuntime},
		{errors.New("broken pipe"), store.OutcomeRuntime},
	}
	for _, tt := range tests {
		if got := outcomeFor(tt.err); got != tt.want {
			t.Errorf("outcomeFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLibRunRecordsStructuralOutcome(t *testing.T) {
	t.Setenv("BF_LIBRARY_DB", filepath.Join(t.TempDir(), "library.db"))

	// lib add rejects broken programs, so seed the store directly the
	// way an external tool writing the database would.
	st, err := store.OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault failed: %v", err)
	}
	digest, err := st.AddProgram("broken", []byte("[+"))
	if err != nil {
		t.Fatalf("AddProgram failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	runErr := runLibRun(libRunCmd, []string{"broken"})
	var serr *program.StructuralError
	if !errors.As(runErr, &serr) {
		t.Fatalf("error = %v, want *program.StructuralError", runErr)
	}

	st, err = store.OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault failed: %v", err)
	}
	defer st.Close()

	runs, err := st.Runs(digest, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("run count = %d, want 1", len(runs))
	}
	if runs[0].Outcome != store.OutcomeStructural {
		t.Errorf("outcome = %q, want %q", runs[0].Outcome, store.OutcomeStructural)
	}
	if runs[0].Steps != 0 {
		t.Errorf("steps = %d, want 0", runs[0].Steps)
	}
	if runs[0].Error == "" {
		t.Error("run record should carry the error text")
	}
}

func TestShortDigest(t *testing.T) {
	long := strings.Repeat("k", 44)
	if got := shortDigest(long); got != strings.Repeat("k", 10) {
		t.Errorf("shortDigest(long) = %q", got)
	}
	if got := shortDigest("abc"); got != "abc" {
		t.Errorf("shortDigest(abc) = %q", got)
	}
}

// Package vm implements the Brainfuck execution engine.
//
// This package contains:
//   - Fixed-length byte tape with fail-fast pointer bounds
//   - Non-recursive instruction-dispatch loop
//   - Byte-stream I/O with configurable flush and EOF policies
//   - Step metering for bounded execution
//   - Execution snapshots (save a running machine, resume it later)
package vm

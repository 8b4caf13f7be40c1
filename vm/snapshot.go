package vm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/chazu/brainfuck/program"
)

// ---------------------------------------------------------------------------
// Snapshot format
// ---------------------------------------------------------------------------
//
// A snapshot file is a 4-byte magic, a 1-byte format version, then a
// zstd-compressed, canonically CBOR-encoded payload holding the program
// source and the machine state. The jump table is never stored; a loaded
// snapshot re-resolves its program.

// SnapshotMagic identifies a machine snapshot file.
var SnapshotMagic = [4]byte{'B', 'F', 'S', 'N'}

// Snapshot format versions.
const (
	// SnapshotVersion1: initial format. Source + digest + tape + ip +
	// steps + run settings.
	SnapshotVersion1 = 1

	// SnapshotVersion is the version written by this build.
	SnapshotVersion = SnapshotVersion1
)

// maxSnapshotPayload bounds the decompressed payload so a truncated or
// hostile snapshot cannot balloon memory before validation.
const maxSnapshotPayload = 1 << 28

// Snapshot errors.
var (
	ErrSnapshotMagic   = errors.New("invalid snapshot magic: expected BFSN")
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
	ErrSnapshotCorrupt = errors.New("corrupt snapshot")
	ErrSnapshotDigest  = errors.New("snapshot digest mismatch")
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type snapshotPayload struct {
	Source  []byte `cbor:"source"`
	Digest  []byte `cbor:"digest"` // blake3-256 of Source
	Cells   []byte `cbor:"cells"`
	Pointer int    `cbor:"pointer"`
	IP      int    `cbor:"ip"`
	Steps   uint64 `cbor:"steps"`
	Done    bool   `cbor:"done"`
	EOF     int    `cbor:"eof"`
	Flush   bool   `cbor:"flush"`
}

// WriteSnapshot serializes the machine's current state to w. The machine
// is untouched and can keep running afterward.
func (m *Machine) WriteSnapshot(w io.Writer) error {
	if _, err := w.Write(SnapshotMagic[:]); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write([]byte{SnapshotVersion}); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	digest := blake3.Sum256(m.prog.Src)
	payload := snapshotPayload{
		Source:  m.prog.Src,
		Digest:  digest[:],
		Cells:   m.tape.cells,
		Pointer: m.tape.ptr,
		IP:      m.ip,
		Steps:   m.steps,
		Done:    m.done,
		EOF:     int(m.cfg.eofPolicy),
		Flush:   m.cfg.flush,
	}

	raw, err := cborEncMode.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return zw.Close()
}

// SaveSnapshot writes the snapshot to a file.
func (m *Machine) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := m.WriteSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot restores a machine from r and wires it to fresh streams.
// The stored settings apply unless opts override them; the tape always
// comes from the snapshot, so WithTapeLength has no effect here. The
// embedded program must hash to the embedded digest, and every restored
// index is validated before use.
func LoadSnapshot(r io.Reader, in io.ByteReader, out io.ByteWriter, opts ...Option) (*Machine, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrSnapshotCorrupt, err)
	}
	if !bytes.Equal(header[:4], SnapshotMagic[:]) {
		return nil, ErrSnapshotMagic
	}
	if header[4] != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, header[4])
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxSnapshotPayload+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if len(raw) > maxSnapshotPayload {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrSnapshotCorrupt, maxSnapshotPayload)
	}

	var payload snapshotPayload
	if err := cbor.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	digest := blake3.Sum256(payload.Source)
	if !bytes.Equal(digest[:], payload.Digest) {
		return nil, ErrSnapshotDigest
	}

	prog := program.Scan(payload.Source)
	jumps, err := program.Resolve(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	if len(payload.Cells) < 1 {
		return nil, fmt.Errorf("%w: empty tape", ErrSnapshotCorrupt)
	}
	if payload.Pointer < 0 || payload.Pointer >= len(payload.Cells) {
		return nil, fmt.Errorf("%w: pointer %d outside tape of %d cells",
			ErrSnapshotCorrupt, payload.Pointer, len(payload.Cells))
	}
	if payload.IP < 0 || payload.IP > prog.Len() {
		return nil, fmt.Errorf("%w: ip %d outside program of %d instructions",
			ErrSnapshotCorrupt, payload.IP, prog.Len())
	}
	if payload.EOF != int(EOFZero) && payload.EOF != int(EOFHalt) {
		return nil, fmt.Errorf("%w: unknown eof policy %d", ErrSnapshotCorrupt, payload.EOF)
	}

	cfg := defaultConfig()
	cfg.eofPolicy = EOFPolicy(payload.EOF)
	cfg.flush = payload.Flush
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tapeLength = len(payload.Cells)

	m := &Machine{
		prog:  prog,
		jumps: jumps,
		tape:  Tape{cells: payload.Cells, ptr: payload.Pointer},
		ip:    payload.IP,
		steps: payload.Steps,
		meter: newStepMeter(cfg.stepBudget),
		done:  payload.Done || payload.IP == prog.Len(),
		in:    in,
		out:   out,
		cfg:   cfg,
	}
	m.outFlush, _ = out.(flusher)
	return m, nil
}

// OpenSnapshot restores a machine from a snapshot file.
func OpenSnapshot(path string, in io.ByteReader, out io.ByteWriter, opts ...Option) (*Machine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return LoadSnapshot(f, in, out, opts...)
}

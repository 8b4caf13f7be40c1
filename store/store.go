// Package store persists the Brainfuck program library and its run
// history in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested program doesn't exist.
var ErrNotFound = errors.New("program not found")

// Digest computes the content address of a program source: blake3-256
// rendered in base58.
func Digest(source []byte) string {
	sum := blake3.Sum256(source)
	return base58.Encode(sum[:])
}

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeStructural Outcome = "structural"
	OutcomeRuntime    Outcome = "runtime"
	OutcomeCanceled   Outcome = "canceled"
)

// Program is a library entry.
type Program struct {
	Digest    string
	Name      string
	Source    []byte
	CreatedAt time.Time
}

// RunRecord is one execution of a library program.
type RunRecord struct {
	ID            string
	ProgramDigest string
	StartedAt     time.Time
	FinishedAt    time.Time
	Steps         uint64
	Outcome       Outcome
	Error         string
}

// Store handles SQLite storage for the library.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens the library database at path, creating the file and its
// parent directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		digest     TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		source     BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		program_digest TEXT NOT NULL,
		started_at     INTEGER NOT NULL,
		finished_at    INTEGER NOT NULL,
		steps          INTEGER NOT NULL,
		outcome        TEXT NOT NULL,
		error          TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the library at $BF_LIBRARY_DB, falling back to
// ~/.bf/library.db.
func OpenDefault() (*Store, error) {
	path := os.Getenv("BF_LIBRARY_DB")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		path = filepath.Join(home, ".bf", "library.db")
	}
	return Open(path)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// AddProgram stores source under name and returns its digest. Re-adding
// the same content under the same name is a no-op; any other collision
// on name or content is an error naming what it collided with.
func (s *Store) AddProgram(name string, source []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest := Digest(source)

	var haveDigest, haveName string
	err := s.db.QueryRow(
		"SELECT digest, name FROM programs WHERE digest = ? OR name = ?",
		digest, name,
	).Scan(&haveDigest, &haveName)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("querying program: %w", err)
	case haveDigest == digest && haveName == name:
		return digest, nil
	case haveName == name:
		return "", fmt.Errorf("name %q already holds digest %s", name, haveDigest)
	default:
		return "", fmt.Errorf("content already stored as %q", haveName)
	}

	_, err = s.db.Exec(
		"INSERT INTO programs (digest, name, source, created_at) VALUES (?, ?, ?, ?)",
		digest, name, source, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("saving program: %w", err)
	}
	return digest, nil
}

// ProgramByName retrieves a library entry by name.
func (s *Store) ProgramByName(name string) (*Program, error) {
	row := s.db.QueryRow(
		"SELECT digest, name, source, created_at FROM programs WHERE name = ?", name)
	return scanProgram(row)
}

// ProgramByDigest retrieves a library entry by its digest or by an
// unambiguous digest prefix.
func (s *Store) ProgramByDigest(digest string) (*Program, error) {
	if digest == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(
		"SELECT digest, name, source, created_at FROM programs WHERE substr(digest, 1, ?) = ?",
		len(digest), digest)
	if err != nil {
		return nil, fmt.Errorf("querying program: %w", err)
	}
	defer rows.Close()

	var matches []Program
	for rows.Next() {
		var p Program
		var created string
		if err := rows.Scan(&p.Digest, &p.Name, &p.Source, &created); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		matches = append(matches, p)
		if len(matches) > 1 {
			return nil, fmt.Errorf("digest prefix %q is ambiguous", digest)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying program: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// Programs returns every library entry ordered by name.
func (s *Store) Programs() ([]Program, error) {
	rows, err := s.db.Query(
		"SELECT digest, name, source, created_at FROM programs ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	var programs []Program
	for rows.Next() {
		var p Program
		var created string
		if err := rows.Scan(&p.Digest, &p.Name, &p.Source, &created); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// RemoveProgram deletes a library entry and its run history.
func (s *Store) RemoveProgram(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ProgramByName(name)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE program_digest = ?", p.Digest); err != nil {
		return fmt.Errorf("deleting runs: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM programs WHERE digest = ?", p.Digest); err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

// RecordRun appends a run to the history. A blank ID gets a fresh UUID.
func (s *Store) RecordRun(r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, program_digest, started_at, finished_at, steps, outcome, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.ProgramDigest,
		r.StartedAt.UTC().UnixNano(), r.FinishedAt.UTC().UnixNano(),
		int64(r.Steps), string(r.Outcome), r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Runs returns the run history, newest first. A non-empty digest limits
// the history to one program; a positive limit caps the result.
func (s *Store) Runs(digest string, limit int) ([]RunRecord, error) {
	query := "SELECT id, program_digest, started_at, finished_at, steps, outcome, error FROM runs"
	var args []any
	if digest != "" {
		query += " WHERE program_digest = ?"
		args = append(args, digest)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished, steps int64
		var outcome string
		if err := rows.Scan(&r.ID, &r.ProgramDigest, &started, &finished, &steps, &outcome, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.FinishedAt = time.Unix(0, finished).UTC()
		r.Steps = uint64(steps)
		r.Outcome = Outcome(outcome)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanProgram(row *sql.Row) (*Program, error) {
	var p Program
	var created string
	err := row.Scan(&p.Digest, &p.Name, &p.Source, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &p, nil
}

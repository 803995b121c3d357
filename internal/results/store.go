// Package results records interpreter runs in a SQLite database so
// benchmark sweeps can be compared afterwards.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Run is one recorded execution.
type Run struct {
	ID      uuid.UUID
	Command string // run or check
	Program string
	Witness string

	Status      int
	Verdict     string
	ErrorCalled bool
	Steps       int
	PeakMemory  int
	Error       string

	Started  time.Time
	Duration time.Duration
}

// Filter narrows List.
type Filter struct {
	Program string
	Verdict string
	// Limit caps the number of runs; zero means no limit.
	Limit int
}

// Store is a results database.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	command      TEXT NOT NULL,
	program      TEXT NOT NULL,
	witness      TEXT NOT NULL DEFAULT '',
	status       INTEGER NOT NULL,
	verdict      TEXT NOT NULL,
	error_called INTEGER NOT NULL,
	steps        INTEGER NOT NULL,
	peak_memory  INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	started      INTEGER NOT NULL,
	duration     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_program ON runs(program);`

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results %s: %w", path, err)
	}
	// ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results schema in %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r, assigning it an id when it has none.
func (s *Store) Record(ctx context.Context, r *Run) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, command, program, witness, status, verdict, error_called, steps, peak_memory, error, started, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Command, r.Program, r.Witness, r.Status, r.Verdict, r.ErrorCalled,
		r.Steps, r.PeakMemory, r.Error, r.Started.UnixNano(), int64(r.Duration))
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

const columns = `id, command, program, witness, status, verdict, error_called, steps, peak_memory, error, started, duration`

// List returns the matching runs, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	query := `SELECT ` + columns + ` FROM runs WHERE 1=1`
	var args []interface{}
	if f.Program != "" {
		query += ` AND program = ?`
		args = append(args, f.Program)
	}
	if f.Verdict != "" {
		query += ` AND verdict = ?`
		args = append(args, f.Verdict)
	}
	query += ` ORDER BY started DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM runs WHERE id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r        Run
		id       string
		started  int64
		duration int64
	)
	err := sc.Scan(&id, &r.Command, &r.Program, &r.Witness, &r.Status, &r.Verdict, &r.ErrorCalled,
		&r.Steps, &r.PeakMemory, &r.Error, &started, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("reading run: %w", err)
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("reading run: bad id %q: %w", id, err)
	}
	r.Started = time.Unix(0, started)
	r.Duration = time.Duration(duration)
	return &r, nil
}

// Package history keeps a SQLite record of batch runs and the current list
// of materials that failed texture assignment.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ernie/matfixer/internal/matfix"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	action      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	shader      TEXT NOT NULL DEFAULT '',
	processed   INTEGER NOT NULL DEFAULT 0,
	assigned    INTEGER NOT NULL DEFAULT 0,
	normal_maps INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	reimported  INTEGER NOT NULL DEFAULT 0,
	cleared     INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	backup      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
CREATE TABLE IF NOT EXISTS failed_materials (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	position   INTEGER NOT NULL,
	material   TEXT NOT NULL,
	path       TEXT NOT NULL DEFAULT '',
	suggestion TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
`

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Run is one recorded batch run.
type Run struct {
	ID         string
	Action     matfix.Action
	StartedAt  time.Time
	Shader     string
	Processed  int
	Assigned   int
	NormalMaps int
	Failed     int
	Reimported int
	Cleared    int
	Errors     int
	Backup     string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer; the CLI never runs statements concurrently.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run. An assign run replaces the failed list with
// its own failures; an unassign run empties it.
func (s *Store) Record(id string, rep *matfix.Report, backup string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, action, started_at, shader, processed, assigned, normal_maps, failed, reimported, cleared, errors, backup)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(rep.Action), rep.StartedAt.UnixNano(), rep.Shader, rep.Processed,
		len(rep.Assigned), len(rep.NormalMaps), len(rep.Failed), len(rep.Reimported),
		len(rep.Cleared), len(rep.Errors), backup)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	switch rep.Action {
	case matfix.ActionAssign, matfix.ActionUnassign:
		if _, err := tx.Exec("DELETE FROM failed_materials"); err != nil {
			return fmt.Errorf("clear failed materials: %w", err)
		}
	}
	if rep.Action == matfix.ActionAssign {
		stmt, err := tx.Prepare("INSERT INTO failed_materials (run_id, position, material, path, suggestion) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare failed insert: %w", err)
		}
		defer stmt.Close()
		for i, f := range rep.Failed {
			if _, err := stmt.Exec(id, i, f.Material, f.Path, f.Suggestion); err != nil {
				return fmt.Errorf("insert failed material %s: %w", f.Material, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Failed returns the current failed list in the order the run produced it.
func (s *Store) Failed() ([]matfix.Failure, error) {
	rows, err := s.db.Query(`SELECT f.material, f.path, f.suggestion
		FROM failed_materials f JOIN runs r ON r.id = f.run_id
		ORDER BY r.started_at, f.position`)
	if err != nil {
		return nil, fmt.Errorf("query failed materials: %w", err)
	}
	defer rows.Close()

	var out []matfix.Failure
	for rows.Next() {
		var f matfix.Failure
		if err := rows.Scan(&f.Material, &f.Path, &f.Suggestion); err != nil {
			return nil, fmt.Errorf("scan failed material: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ClearFailed empties the failed list and reports how many entries it held.
func (s *Store) ClearFailed() (int64, error) {
	res, err := s.db.Exec("DELETE FROM failed_materials")
	if err != nil {
		return 0, fmt.Errorf("clear failed materials: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = `id, action, started_at, shader, processed, assigned, normal_maps,
	failed, reimported, cleared, errors, backup`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var action string
	var started int64
	if err := sc.Scan(&r.ID, &action, &started, &r.Shader, &r.Processed, &r.Assigned,
		&r.NormalMaps, &r.Failed, &r.Reimported, &r.Cleared, &r.Errors, &r.Backup); err != nil {
		return Run{}, err
	}
	r.Action = matfix.Action(action)
	r.StartedAt = time.Unix(0, started)
	return r, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run looks up a single run by id. A missing run wraps sql.ErrNoRows.
func (s *Store) Run(id string) (Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	return r, nil
}

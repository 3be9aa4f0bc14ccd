package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazz-dev/hodorprobe/internal/probe"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS probes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL,
    path        TEXT    NOT NULL,
    url         TEXT    NOT NULL,
    status      TEXT    NOT NULL CHECK(status IN ('up', 'down')),
    status_code INTEGER NOT NULL DEFAULT 0,
    response_ms INTEGER NOT NULL,
    preview     TEXT    NOT NULL DEFAULT '',
    error       TEXT    NOT NULL DEFAULT '',
    checked_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_path ON probes(path);
CREATE INDEX IF NOT EXISTS idx_probes_run ON probes(run_id);
CREATE INDEX IF NOT EXISTS idx_probes_checked_at ON probes(checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_probes_path_checked ON probes(path, checked_at DESC);
`

// timeLayout is fixed width so checked_at strings sort in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const probeColumns = `id, run_id, path, url, status, status_code, response_ms, preview, error, checked_at`

// Probe is a stored probe result.
type Probe struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code"`
	ResponseMs int64     `json:"response_ms"`
	Preview    string    `json:"preview"`
	Error      string    `json:"error"`
	CheckedAt  time.Time `json:"checked_at"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// Every pooled connection to ":memory:" would get its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertResult persists a probe result. Only the body preview is stored.
func (d *DB) InsertResult(ctx context.Context, r probe.Result) error {
	status := r.Status
	if status == "" {
		status = probe.StatusDown
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO probes (run_id, path, url, status, status_code, response_ms, preview, error, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.Path,
		r.URL,
		string(status),
		r.StatusCode,
		r.ResponseTime.Milliseconds(),
		r.Preview(),
		r.Error,
		r.CheckedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting result for %q: %w", r.Path, err)
	}
	return nil
}

// LatestResult returns the most recent result for the given path, or nil if none.
func (d *DB) LatestResult(ctx context.Context, path string) (*Probe, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+probeColumns+` FROM probes WHERE path = ? ORDER BY checked_at DESC, id DESC LIMIT 1`,
		path,
	)
	p, err := scanProbe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest result for %q: %w", path, err)
	}
	return p, nil
}

// PathHistory returns paginated results for a path plus the total count.
func (d *DB) PathHistory(ctx context.Context, path string, limit, offset int) ([]Probe, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM probes WHERE path = ?`, path,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting results for %q: %w", path, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+probeColumns+` FROM probes WHERE path = ? ORDER BY checked_at DESC, id DESC LIMIT ? OFFSET ?`,
		path, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", path, err)
	}
	defer rows.Close()

	probes, err := scanProbes(rows)
	if err != nil {
		return nil, 0, err
	}
	return probes, total, nil
}

// AllLatest returns the most recent result for each path.
func (d *DB) AllLatest(ctx context.Context) ([]Probe, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+probeColumns+`
		FROM probes
		WHERE id IN (
			SELECT MAX(id) FROM probes GROUP BY path
		)
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all latest: %w", err)
	}
	defer rows.Close()
	return scanProbes(rows)
}

// LatestRun returns the results of the most recently stored run, in request order.
func (d *DB) LatestRun(ctx context.Context) ([]Probe, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+probeColumns+`
		FROM probes
		WHERE run_id = (SELECT run_id FROM probes ORDER BY id DESC LIMIT 1)
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	defer rows.Close()
	return scanProbes(rows)
}

// UptimePercent returns the percentage of "up" results in the last N results for a path.
func (d *DB) UptimePercent(ctx context.Context, path string, last int) (float64, error) {
	var total int
	var upCount sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END)
		FROM (
			SELECT status FROM probes WHERE path = ? ORDER BY checked_at DESC, id DESC LIMIT ?
		)
	`, path, last).Scan(&total, &upCount)
	if err != nil {
		return 0, fmt.Errorf("calculating uptime for %q: %w", path, err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(upCount.Int64) / float64(total) * 100, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProbe(row scanner) (*Probe, error) {
	var p Probe
	var checkedAt string
	err := row.Scan(&p.ID, &p.RunID, &p.Path, &p.URL, &p.Status, &p.StatusCode,
		&p.ResponseMs, &p.Preview, &p.Error, &checkedAt)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, checkedAt)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		t, err = time.Parse(time.RFC3339, checkedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing checked_at %q: %w", checkedAt, err)
		}
	}
	p.CheckedAt = t
	return &p, nil
}

func scanProbes(rows *sql.Rows) ([]Probe, error) {
	var probes []Probe
	for rows.Next() {
		p, err := scanProbe(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning probe row: %w", err)
		}
		probes = append(probes, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating probe rows: %w", err)
	}
	return probes, nil
}

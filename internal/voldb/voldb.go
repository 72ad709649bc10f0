// Package voldb records written volume files in a SQLite index so a run's
// outputs can be listed and audited after the fact.
package voldb

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fieldvolt-data/fieldvol/internal/timeutil"
)

// Export kinds, one per file the writers produce.
const (
	KindRaw  = "raw"
	KindInfo = "info"
	KindMhd  = "mhd"
)

// Export is one written volume file.
type Export struct {
	RunID            string
	Kind             string
	SimTime          float64
	Path             string
	DimX, DimY, DimZ int
	SizeBytes        int64
	Checksum         uint64
	WrittenUnixNanos int64
}

// DB wraps the SQLite export index.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the export index at path. Use ":memory:"
// for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS volume_exports (
			export_id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL,
			kind               TEXT NOT NULL,
			sim_time           DOUBLE NOT NULL,
			path               TEXT NOT NULL,
			dim_x              BIGINT,
			dim_y              BIGINT,
			dim_z              BIGINT,
			size_bytes         BIGINT,
			checksum           TEXT,
			written_unix_nanos BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_volume_exports_run
			ON volume_exports(run_id, sim_time);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the wall clock used for written_unix_nanos. Tests inject
// a MockClock for deterministic timestamps.
func (db *DB) SetClock(c timeutil.Clock) {
	if c != nil {
		db.clock = c
	}
}

// NewRunID returns a fresh identifier grouping one run's exports.
func NewRunID() string {
	return uuid.NewString()
}

// RecordExport inserts one written file into the index. The checksum is
// stored as fixed-width hex so the full uint64 range survives SQLite's
// signed integers.
func (db *DB) RecordExport(e Export) error {
	if e.RunID == "" {
		return fmt.Errorf("export record needs a run_id")
	}
	switch e.Kind {
	case KindRaw, KindInfo, KindMhd:
	default:
		return fmt.Errorf("unknown export kind %q", e.Kind)
	}

	written := e.WrittenUnixNanos
	if written == 0 {
		written = db.clock.Now().UnixNano()
	}

	_, err := db.Exec(`
		INSERT INTO volume_exports
			(run_id, kind, sim_time, path, dim_x, dim_y, dim_z, size_bytes, checksum, written_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Kind, e.SimTime, e.Path,
		e.DimX, e.DimY, e.DimZ, e.SizeBytes,
		fmt.Sprintf("%016x", e.Checksum), written,
	)
	if err != nil {
		return fmt.Errorf("failed to record export %s: %w", e.Path, err)
	}
	return nil
}

// ListExports returns all exports for a run ordered by simulation time then
// insertion order.
func (db *DB) ListExports(runID string) ([]Export, error) {
	rows, err := db.Query(`
		SELECT run_id, kind, sim_time, path, dim_x, dim_y, dim_z, size_bytes, checksum, written_unix_nanos
		FROM volume_exports
		WHERE run_id = ?
		ORDER BY sim_time, export_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var e Export
		var checksumHex string
		if err := rows.Scan(&e.RunID, &e.Kind, &e.SimTime, &e.Path,
			&e.DimX, &e.DimY, &e.DimZ, &e.SizeBytes, &checksumHex, &e.WrittenUnixNanos); err != nil {
			return nil, err
		}
		cs, err := strconv.ParseUint(checksumHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt checksum %q for %s: %w", checksumHex, e.Path, err)
		}
		e.Checksum = cs
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

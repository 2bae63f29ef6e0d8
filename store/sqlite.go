package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
	"github.com/cloudx-io/auctiontimeline/timelineapi/parsing"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

// defaultListLimit caps ListSnapshots when the caller passes no limit.
const defaultListLimit = 100

// SQLiteStore persists build snapshots in SQLite
type SQLiteStore struct {
	db *sql.DB
}

// SnapshotRecord is a stored snapshot with its row id.
type SnapshotRecord struct {
	ID       int64
	Snapshot *timelineapi.Snapshot
}

// Open opens (or creates) the snapshot database at dbPath
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			ad_unit TEXT NOT NULL,
			time_bucket TEXT NOT NULL,
			step_title TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_selection ON snapshots(ad_unit, time_bucket, id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores the snapshot as a CBOR envelope and returns its row id
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *timelineapi.Snapshot) (int64, error) {
	payload, err := timelineapi.EncodeSnapshot(snapshot)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO snapshots (session_id, ad_unit, time_bucket, step_title, fingerprint, payload, created_at_ms)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		snapshot.SessionID, snapshot.AdUnit, snapshot.TimeBucket, snapshot.Step.Title,
		snapshot.Fingerprint, []byte(payload), snapshot.CreatedAtMs)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}
	return id, nil
}

// ListSnapshots returns the selection's snapshots, oldest first
func (s *SQLiteStore) ListSnapshots(ctx context.Context, adUnit, timeBucket string, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, payload FROM snapshots
	          WHERE ad_unit = ? AND time_bucket = ?
	          ORDER BY id ASC
	          LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, adUnit, timeBucket, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		record, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// LatestSnapshot returns the most recent snapshot for the selection
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, adUnit, timeBucket string) (SnapshotRecord, error) {
	query := `SELECT id, payload FROM snapshots
	          WHERE ad_unit = ? AND time_bucket = ?
	          ORDER BY id DESC
	          LIMIT 1`

	record, err := scanSnapshot(s.db.QueryRowContext(ctx, query, adUnit, timeBucket))
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("%s/%s: %w", adUnit, timeBucket, ErrNotFound)
	}
	return record, err
}

// LatestSessionSnapshot returns the most recent snapshot saved by a session
func (s *SQLiteStore) LatestSessionSnapshot(ctx context.Context, sessionID string) (SnapshotRecord, error) {
	query := `SELECT id, payload FROM snapshots
	          WHERE session_id = ?
	          ORDER BY id DESC
	          LIMIT 1`

	record, err := scanSnapshot(s.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return record, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SnapshotRecord, error) {
	var record SnapshotRecord
	var payload []byte

	if err := row.Scan(&record.ID, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SnapshotRecord{}, err
		}
		return SnapshotRecord{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snapshot, err := parsing.DecodeSnapshot(timelineapi.SnapshotCBOR(payload))
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("failed to decode snapshot %d: %w", record.ID, err)
	}
	record.Snapshot = snapshot

	return record, nil
}

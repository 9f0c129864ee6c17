package trajectory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed Recorder.
// WAL mode is enabled for concurrent reads.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the default trajectory database path.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "taskforge", "trajectories.db")
}

// Open opens a trajectory store at the given path.
// It creates the parent directories if they don't exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending schema migrations.
func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Trajectories},
		{2, migrationV2Steps},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Trajectories = `
CREATE TABLE IF NOT EXISTS trajectories (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	outcome TEXT,
	metadata TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_trajectories_task_id ON trajectories(task_id);
CREATE INDEX IF NOT EXISTS idx_trajectories_status ON trajectories(status);
`

const migrationV2Steps = `
CREATE TABLE IF NOT EXISTS trajectory_steps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trajectory_id TEXT NOT NULL REFERENCES trajectories(id),
	action TEXT NOT NULL,
	observation TEXT,
	confidence REAL,
	metadata TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_steps_trajectory_id ON trajectory_steps(trajectory_id);
`

// Start opens a trajectory for a task and returns its ID.
func (s *Store) Start(taskID string, metadata map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	_, err := s.conn.Exec(`
		INSERT INTO trajectories (id, task_id, status, metadata, started_at)
		VALUES (?, ?, 'open', ?, ?)
	`, id, taskID, encodeMetadata(metadata), formatTime(time.Now()))
	if err != nil {
		log.Printf("[trajectory] start failed for task %s: %v", taskID, err)
		return ""
	}

	return id
}

// RecordStep appends one action/observation pair to a trajectory.
func (s *Store) RecordStep(trajectoryID, action, observation string, confidence float64, metadata map[string]any) {
	if trajectoryID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO trajectory_steps (trajectory_id, action, observation, confidence, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, trajectoryID, action, observation, confidence, encodeMetadata(metadata), formatTime(time.Now()))
	if err != nil {
		log.Printf("[trajectory] record step failed for %s: %v", trajectoryID, err)
	}
}

// Complete closes a trajectory with an outcome and returns the stored ID.
func (s *Store) Complete(trajectoryID, outcome string, metadata map[string]any) string {
	if trajectoryID == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(`
		UPDATE trajectories SET status = 'complete', outcome = ?, metadata = COALESCE(?, metadata), finished_at = ?
		WHERE id = ? AND status = 'open'
	`, outcome, nullableMetadata(metadata), formatTime(time.Now()), trajectoryID)
	if err != nil {
		log.Printf("[trajectory] complete failed for %s: %v", trajectoryID, err)
		return ""
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ""
	}
	return trajectoryID
}

// Abort discards a trajectory with a reason.
func (s *Store) Abort(trajectoryID, reason string) {
	if trajectoryID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		UPDATE trajectories SET status = 'aborted', outcome = ?, finished_at = ?
		WHERE id = ? AND status = 'open'
	`, reason, formatTime(time.Now()), trajectoryID)
	if err != nil {
		log.Printf("[trajectory] abort failed for %s: %v", trajectoryID, err)
	}
}

// StepCount returns the number of recorded steps for a trajectory.
func (s *Store) StepCount(trajectoryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	row := s.conn.QueryRow("SELECT COUNT(*) FROM trajectory_steps WHERE trajectory_id = ?", trajectoryID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count steps: %w", err)
	}
	return n, nil
}

// Status returns the status and outcome of a trajectory.
func (s *Store) Status(trajectoryID string) (status, outcome string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out sql.NullString
	row := s.conn.QueryRow("SELECT status, outcome FROM trajectories WHERE id = ?", trajectoryID)
	if err := row.Scan(&status, &out); err != nil {
		return "", "", fmt.Errorf("get trajectory: %w", err)
	}
	return status, out.String, nil
}

// PurgeOld deletes trajectories (and their steps) older than the duration.
// Returns the number of trajectories deleted.
func (s *Store) PurgeOld(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))

	if _, err := s.conn.Exec(`
		DELETE FROM trajectory_steps WHERE trajectory_id IN
			(SELECT id FROM trajectories WHERE started_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("purge old steps: %w", err)
	}

	res, err := s.conn.Exec("DELETE FROM trajectories WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old trajectories: %w", err)
	}

	return res.RowsAffected()
}

// encodeMetadata serializes metadata to JSON, returning "{}" when empty.
func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// nullableMetadata returns nil for empty metadata so COALESCE keeps the old value.
func nullableMetadata(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return encodeMetadata(m)
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

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
	"github.com/tliron/commonlog"

	"github.com/chazu/mmout/output"

	_ "modernc.org/sqlite"
)

// ErrBuildNotFound indicates the requested build doesn't exist.
var ErrBuildNotFound = errors.New("build not found")

// BuildInfo describes one stored build.
type BuildInfo struct {
	ID         string
	Name       string
	Created    time.Time
	Statements int
}

// TraceStore keeps encoded programs in a SQLite database.
type TraceStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (creating if needed) the trace database at dbPath.
func Open(dbPath string) (*TraceStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		created    INTEGER NOT NULL,
		statements INTEGER NOT NULL,
		data       BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &TraceStore{db: db, dbPath: dbPath}, nil
}

func logger() commonlog.Logger { return commonlog.GetLogger("mmout.store") }

// Close closes the database connection.
func (s *TraceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores p under a fresh build id and returns the id.
func (s *TraceStore) Save(name string, p *output.Program) (string, error) {
	data, err := MarshalProgram(p)
	if err != nil {
		return "", fmt.Errorf("encoding program: %w", err)
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT INTO builds (id, name, created, statements, data) VALUES (?, ?, ?, ?, ?)",
		id, name, time.Now().Unix(), len(p.Statements), data)
	if err != nil {
		return "", fmt.Errorf("saving build: %w", err)
	}
	logger().Infof("saved build %s (%s, %d statements, %d bytes)", id, name, len(p.Statements), len(data))
	return id, nil
}

// Load returns the build with the given id.
func (s *TraceStore) Load(id string) (*output.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM builds WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading build: %w", err)
	}
	return UnmarshalProgram(data)
}

// Latest returns the most recently saved build, restricted to builds named
// name unless name is empty.
func (s *TraceStore) Latest(name string) (string, *output.Program, error) {
	s.mu.Lock()
	var (
		id   string
		data []byte
		err  error
	)
	if name == "" {
		err = s.db.QueryRow("SELECT id, data FROM builds ORDER BY seq DESC LIMIT 1").Scan(&id, &data)
	} else {
		err = s.db.QueryRow("SELECT id, data FROM builds WHERE name = ? ORDER BY seq DESC LIMIT 1", name).Scan(&id, &data)
	}
	s.mu.Unlock()
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("%w: no builds for %q", ErrBuildNotFound, name)
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading latest build: %w", err)
	}
	p, err := UnmarshalProgram(data)
	if err != nil {
		return "", nil, err
	}
	return id, p, nil
}

// List returns all builds, oldest first.
func (s *TraceStore) List() ([]BuildInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT id, name, created, statements FROM builds ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var out []BuildInfo
	for rows.Next() {
		var b BuildInfo
		var created int64
		if err := rows.Scan(&b.ID, &b.Name, &created, &b.Statements); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		b.Created = time.Unix(created, 0)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes a build.
func (s *TraceStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM builds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting build: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	return nil
}

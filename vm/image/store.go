package image

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested image is not in the store.
var ErrNotFound = errors.New("image not found")

// Store keeps named program images in a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Entry describes one stored image.
type Entry struct {
	Name    string
	Size    int
	Updated time.Time
}

// OpenStore opens or creates the store at path. Use ":memory:" for a
// private in-memory store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		name    TEXT PRIMARY KEY,
		data    BLOB NOT NULL,
		updated INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores p under name, replacing any previous image.
func (s *Store) Put(name string, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("image: marshal %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`INSERT INTO images (name, data, updated) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated = excluded.updated`,
		name, data, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("image: store %s: %w", name, err)
	}
	return nil
}

// Get loads the image stored under name.
func (s *Store) Get(name string) (*Program, error) {
	s.mu.Lock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE name = ?", name).Scan(&data)
	s.mu.Unlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("image: query %s: %w", name, err)
	}
	return Unmarshal(data)
}

// Delete removes name. Deleting a missing image is not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM images WHERE name = ?", name); err != nil {
		return fmt.Errorf("image: delete %s: %w", name, err)
	}
	return nil
}

// List returns every stored image ordered by name.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT name, length(data), updated FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("image: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Name, &e.Size, &updated); err != nil {
			return nil, fmt.Errorf("image: list: %w", err)
		}
		e.Updated = time.Unix(0, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Package markers persists which orders already emitted a purchase event,
// surviving thank-you page reloads.
package markers

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the marker database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS purchase_markers (
			order_id TEXT PRIMARY KEY,
			tracked_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Tracked reports whether the order already emitted a purchase.
func (s *Store) Tracked(orderID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM purchase_markers WHERE order_id = ?`,
		orderID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records the order as tracked. Re-marking is a no-op.
func (s *Store) Mark(orderID string) error {
	_, err := s.db.Exec(
		`INSERT INTO purchase_markers (order_id, tracked_at)
		 VALUES (?, ?)
		 ON CONFLICT(order_id) DO NOTHING`,
		orderID, time.Now().UTC(),
	)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

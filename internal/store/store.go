// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists processing history in a SQLite database so status
// reporting survives restarts and repeated runs can be audited.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperflow/pkg/types"
)

// Store manages the processing-history SQLite database.
type Store struct {
	db *sql.DB
}

// HistoryEntry is one recorded processing outcome.
type HistoryEntry struct {
	ItemKey     string                 `yaml:"item_key"`
	Title       string                 `yaml:"title,omitempty"`
	Status      types.ProcessingStatus `yaml:"status"`
	Collections []string               `yaml:"collections,omitempty"`
	Tags        []string               `yaml:"tags,omitempty"`
	Confidence  float64                `yaml:"confidence,omitempty"`
	Error       string                 `yaml:"error,omitempty"`
	ProcessedAt time.Time              `yaml:"processed_at"`
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS history (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			item_key TEXT NOT NULL,
			title TEXT,
			status TEXT NOT NULL,
			collections TEXT,
			tags TEXT,
			confidence REAL,
			error TEXT,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_item_key ON history(item_key)`,
		`CREATE INDEX IF NOT EXISTS idx_history_status ON history(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one processing outcome to the history.
func (s *Store) Record(result types.ProcessingResult) error {
	var collections, tags []string
	var confidence float64
	if result.Classification != nil {
		collections = result.Classification.Collections
		tags = result.Classification.Tags
		confidence = result.Classification.Confidence
	}

	collectionsJSON, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("encoding collections: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO history (item_key, title, status, collections, tags, confidence, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ItemKey, result.Title, string(result.Status),
		string(collectionsJSON), string(tagsJSON), confidence,
		result.Error, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording result for %s: %w", result.ItemKey, err)
	}
	return nil
}

// Recent returns up to n history entries, newest first.
func (s *Store) Recent(n int) ([]HistoryEntry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.Query(
		`SELECT item_key, title, status, collections, tags, confidence, error, processed_at
		 FROM history ORDER BY rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var status, collectionsJSON, tagsJSON, processedAt string
		if err := rows.Scan(&e.ItemKey, &e.Title, &status, &collectionsJSON, &tagsJSON, &e.Confidence, &e.Error, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Status = types.ProcessingStatus(status)
		if collectionsJSON != "" {
			json.Unmarshal([]byte(collectionsJSON), &e.Collections)
		}
		if tagsJSON != "" {
			json.Unmarshal([]byte(tagsJSON), &e.Tags)
		}
		e.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns how many history entries exist per status.
func (s *Store) Counts() (map[types.ProcessingStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting history: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.ProcessingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[types.ProcessingStatus(status)] = n
	}
	return counts, rows.Err()
}

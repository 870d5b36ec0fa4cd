package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Entry is one conversation message. Metadata carries free-form key/value
// pairs (tool names used, turn ids) and is stored as a JSON blob.
type Entry struct {
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  map[string]string
}

// ConversationStore persists the chat transcript in sqlite. It is consumed
// as prompt-building input only; the execution pipeline never mutates
// existing rows.
type ConversationStore struct {
	DB *sql.DB
}

func Open(dbPath string) (*ConversationStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	schema := `CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &ConversationStore{DB: db}, nil
}

func (s *ConversationStore) Append(role, content string, metadata map[string]string) error {
	var meta any
	if len(metadata) > 0 {
		blob, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		meta = string(blob)
	}
	_, err := s.DB.Exec(
		`INSERT INTO conversations (role, content, metadata) VALUES (?, ?, ?)`,
		role, content, meta,
	)
	return err
}

// Recent returns up to limit entries in chronological order.
func (s *ConversationStore) Recent(limit int) ([]Entry, error) {
	rows, err := s.DB.Query(
		`SELECT role, content, metadata, timestamp FROM conversations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var meta sql.NullString
		if err := rows.Scan(&e.Role, &e.Content, &meta, &e.Timestamp); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *ConversationStore) Close() error {
	return s.DB.Close()
}

package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/saravenpi/haggle/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS location (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS summary (
		id            INTEGER PRIMARY KEY,
		position      INTEGER NOT NULL,
		other_id      INTEGER NOT NULL,
		other_name    TEXT NOT NULL DEFAULT '',
		other_avatar  TEXT NOT NULL DEFAULT '',
		verified      INTEGER NOT NULL DEFAULT 0,
		listing       BLOB,
		last_content  TEXT,
		last_type     TEXT NOT NULL DEFAULT '',
		last_sender   INTEGER NOT NULL DEFAULT 0,
		last_at       INTEGER NOT NULL DEFAULT 0,
		has_last      INTEGER NOT NULL DEFAULT 0,
		unread        INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL DEFAULT 0,
		updated_at    INTEGER NOT NULL DEFAULT 0
	);
`

const locationKey = "conversation"

// DB is the client's local state: the last open conversation and a cached copy of the
// conversation list, painted before the first network refresh.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

// SaveLocation records the open conversation; 0 means the list.
func (s *DB) SaveLocation(conversationID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO location (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, locationKey, conversationID)
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (s *DB) LoadLocation() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT value FROM location WHERE key = ?`, locationKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load location: %w", err)
	}
	return id, nil
}

// SaveSummaries replaces the cached conversation list.
func (s *DB) SaveSummaries(summaries []models.ConversationSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM summary`); err != nil {
		return fmt.Errorf("failed to clear summaries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO summary (
			id, position, other_id, other_name, other_avatar, verified, listing,
			last_content, last_type, last_sender, last_at, has_last,
			unread, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, sum := range summaries {
		var listing []byte
		if sum.Listing != nil {
			if listing, err = json.Marshal(sum.Listing); err != nil {
				return fmt.Errorf("failed to encode listing: %w", err)
			}
		}

		var (
			content *string
			kind    string
			sender  int64
			at      int64
		)
		if last := sum.LastMessage; last != nil {
			content, kind, sender, at = last.Content, string(last.Type), last.SenderID, unixNano(last.CreatedAt)
		}

		_, err := stmt.Exec(
			sum.ID, i, sum.OtherUser.ID, sum.OtherUser.Name, sum.OtherUser.Avatar, sum.OtherUser.IsVerified, listing,
			content, kind, sender, at, sum.LastMessage != nil,
			sum.UnreadCount, unixNano(sum.CreatedAt), unixNano(sum.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save summary %d: %w", sum.ID, err)
		}
	}

	return tx.Commit()
}

func (s *DB) LoadSummaries() ([]models.ConversationSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			id, other_id, other_name, other_avatar, verified, listing,
			last_content, last_type, last_sender, last_at, has_last,
			unread, created_at, updated_at
		FROM summary
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.ConversationSummary
	for rows.Next() {
		var (
			sum                          models.ConversationSummary
			listing                      []byte
			content                      sql.NullString
			kind                         string
			sender, at, created, updated int64
			hasLast                      bool
		)
		err := rows.Scan(
			&sum.ID, &sum.OtherUser.ID, &sum.OtherUser.Name, &sum.OtherUser.Avatar, &sum.OtherUser.IsVerified, &listing,
			&content, &kind, &sender, &at, &hasLast,
			&sum.UnreadCount, &created, &updated,
		)
		if err != nil {
			continue
		}

		if len(listing) > 0 {
			var l models.Listing
			if json.Unmarshal(listing, &l) == nil {
				sum.Listing = &l
			}
		}
		if hasLast {
			last := &models.LastMessage{Type: models.MessageType(kind), SenderID: sender, CreatedAt: fromUnixNano(at)}
			if content.Valid {
				text := content.String
				last.Content = &text
			}
			sum.LastMessage = last
		}
		sum.CreatedAt = fromUnixNano(created)
		sum.UpdatedAt = fromUnixNano(updated)

		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

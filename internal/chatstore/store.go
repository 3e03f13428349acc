// Package chatstore keeps room chat history in SQLite.
//
// The database runs in WAL mode with a single open connection, so writes are
// serialized by database/sql. Messages are ordered by their insertion seq,
// never by wall-clock time.
package chatstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("module", "chatstore").Str("path", path).Msg("chat store opened")
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, m *domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, conference_id, room_id, sender, body, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.ConferenceID), string(m.Room), string(m.Sender), m.Text, m.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest messages of a room channel,
// oldest first.
func (s *Store) Recent(ctx context.Context, conf domain.ConferenceID, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, sender, body, sent_at FROM (
		     SELECT seq, id, room_id, sender, body, sent_at FROM chat_messages
		     WHERE conference_id = ? AND room_id = ?
		     ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`,
		string(conf), string(room), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m      domain.ChatMessage
			sentAt int64
		)
		if err := rows.Scan(&m.ID, &m.Room, &m.Sender, &m.Text, &sentAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.ConferenceID = conf
		m.Timestamp = time.UnixMilli(sentAt).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteConference(ctx context.Context, conf domain.ConferenceID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE conference_id = ?`, string(conf)); err != nil {
		return fmt.Errorf("delete conference chat: %w", err)
	}
	return nil
}

// Package history provides SQLite-based persistence for scenario transcripts.
// If opening the DB or executing queries fails, the store falls back to in-memory storage.
package history

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/Elektra-V/scenario-framework/internal/llm"
	"github.com/Elektra-V/scenario-framework/internal/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    role TEXT,
    content TEXT,
    created_at DATETIME
);`

// Store keeps transcripts in SQLite, with an in-memory copy as fallback.
type Store struct {
	mu       sync.Mutex
	messages []Message // in-memory fallback
	db       *sql.DB
	logger   *slog.Logger
	now      func() time.Time
}

// Open opens (or creates) the database at path. An empty path or any SQLite
// failure yields a memory-only store; Open itself never fails.
func Open(path string, l *slog.Logger) *Store {
	if l == nil {
		l = logger.L
	}
	s := &Store{logger: l, now: time.Now}
	if path == "" {
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		l.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err := db.Exec(schema); err != nil {
		l.Warn("sqlite table creation failed; using in-memory history", "error", err)
		_ = db.Close()
		return s
	}
	s.db = db
	l.Info("sqlite history DB initialized", "path", path)
	return s
}

// Persistent reports whether messages reach SQLite.
func (s *Store) Persistent() bool { return s.db != nil }

// Save persists a message to SQLite when available and always keeps an
// in-memory copy.
func (s *Store) Save(ctx context.Context, msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
		if err != nil {
			s.logger.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// Record implements scenario.Recorder.
func (s *Store) Record(ctx context.Context, runID string, msg llm.Message) error {
	s.Save(ctx, Message{SessionID: runID, Role: msg.Role, Content: msg.Content})
	return nil
}

// List returns all messages of a session in chronological order.
func (s *Store) List(ctx context.Context, sessionID string) []Message {
	if s.db != nil {
		rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			var out []Message
			for rows.Next() {
				var m Message
				if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err == nil {
					out = append(out, m)
				}
			}
			if err = rows.Err(); err == nil {
				return out
			}
		}
		s.logger.Warn("sqlite history query failed; reading memory", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

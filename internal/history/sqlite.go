package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/halcyonworks/agentroute"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id, id);
`

// SQLiteStore persists conversation history in a SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	maxTurns int
}

// NewSQLiteStore opens (or creates) the database at path and prepares the
// schema. maxTurns <= 0 selects the default bound.
func NewSQLiteStore(path string, maxTurns int) (*SQLiteStore, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare history schema: %w", err)
	}

	return &SQLiteStore{db: db, maxTurns: maxTurns}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Read returns all stored turns for the user, oldest first.
func (s *SQLiteStore) Read(ctx context.Context, userID string) ([]agentroute.HistoryTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM history WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var turns []agentroute.HistoryTurn
	for rows.Next() {
		var turn agentroute.HistoryTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return turns, nil
}

// Append stores a turn and prunes rows beyond the per-user bound.
func (s *SQLiteStore) Append(ctx context.Context, userID string, turn agentroute.HistoryTurn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (user_id, role, content) VALUES (?, ?, ?)`,
		userID, turn.Role, turn.Content); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE user_id = ? AND id NOT IN (
			SELECT id FROM history WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`, userID, userID, s.maxTurns); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	return tx.Commit()
}

// Clear removes all turns for the user.
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

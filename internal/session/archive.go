package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tripmate/internal/chat"
)

// Archive 基于 SQLite (WAL 模式) 的对话归档，跨进程保留历史。
// Archive persists conversation turns in SQLite with WAL mode so history
// survives restarts.
type Archive struct {
	db   *sql.DB
	path string
}

// NewArchive 创建并初始化归档数据库
// NewArchive creates and initializes the archive database
func NewArchive(dbPath string) (*Archive, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("archive db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	a := &Archive{db: db, path: dbPath}
	if err := a.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return a, nil
}

func (a *Archive) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    TEXT NOT NULL,
		user_message  TEXT NOT NULL DEFAULT '',
		assistant_message TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveTurn appends one completed exchange to the archive.
func (a *Archive) SaveTurn(sessionID string, turn chat.Turn) error {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := a.db.Exec(`
		INSERT INTO turns (session_id, user_message, assistant_message, created_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, turn.User, turn.Assistant, ts.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// History returns all archived turns of a session in order.
func (a *Archive) History(sessionID string) ([]chat.Turn, error) {
	rows, err := a.db.Query(`
		SELECT user_message, assistant_message, created_at
		FROM turns WHERE session_id=? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var turn chat.Turn
		var created string
		if err := rows.Scan(&turn.User, &turn.Assistant, &created); err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			turn.Timestamp = ts
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Clear removes all archived turns of a session.
func (a *Archive) Clear(sessionID string) error {
	if _, err := a.db.Exec("DELETE FROM turns WHERE session_id=?", sessionID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

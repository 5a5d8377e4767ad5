package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/querymesh/core"
)

// SQLStore is a durable Store over database/sql supporting the sqlite3,
// mysql and postgres dialects. Turn ordering is carried by an explicit
// per-conversation sequence number so the schema stays dialect-neutral.
//
// Per-conversation serialization uses in-process key locks; cross-process
// deployments additionally rely on the primary key (conversation_id,
// sequence_num) rejecting conflicting writers.
type SQLStore struct {
	db       *sql.DB
	dialect  string
	maxTurns int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// SQLOptions configures a SQLStore.
type SQLOptions struct {
	// MaxTurns bounds retained history per conversation.
	MaxTurns int
}

var createTableStmts = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
    id VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
)`,
	`CREATE TABLE IF NOT EXISTS conversation_turns (
    conversation_id VARCHAR(255) NOT NULL,
    sequence_num INTEGER NOT NULL,
    turn_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    tool_calls TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (conversation_id, sequence_num)
)`,
}

// NewSQLStore wraps an open database handle. The dialect must be one of
// sqlite3, mysql or postgres; tables are created on construction.
func NewSQLStore(db *sql.DB, dialect string, optFns ...func(o *SQLOptions)) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("memory: database handle is required")
	}
	switch dialect {
	case "sqlite3", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("memory: unsupported dialect %q", dialect)
	}

	opts := SQLOptions{MaxTurns: DefaultMaxTurns}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &SQLStore{db: db, dialect: dialect, maxTurns: opts.MaxTurns, locks: make(map[string]*sync.Mutex)}
	for _, stmt := range createTableStmts {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("memory: creating tables: %w", err)
		}
	}
	return s, nil
}

// Append implements Store.
func (s *SQLStore) Append(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	lock := s.keyLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("memory: begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if err := s.touchConversation(ctx, tx, conversationID, now); err != nil {
		return err
	}

	var seq int64
	row := tx.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(sequence_num), 0) FROM conversation_turns WHERE conversation_id = ?`),
		conversationID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("memory: reading sequence: %w", err)
	}

	insert := s.rebind(`INSERT INTO conversation_turns
    (conversation_id, sequence_num, turn_id, role, content, tool_calls, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, turn := range turns {
		seq++
		var calls sql.NullString
		if len(turn.ToolCalls) > 0 {
			raw, err := json.Marshal(turn.ToolCalls)
			if err != nil {
				return fmt.Errorf("memory: encoding tool calls: %w", err)
			}
			calls = sql.NullString{String: string(raw), Valid: true}
		}
		ts := turn.Timestamp
		if ts.IsZero() {
			ts = now
		}
		if _, err := tx.ExecContext(ctx, insert,
			conversationID, seq, turn.ID, string(turn.Role), turn.Content, calls, ts); err != nil {
			return fmt.Errorf("memory: inserting turn: %w", err)
		}
	}

	if err := s.evictLocked(ctx, tx, conversationID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("memory: commit append: %w", err)
	}
	return nil
}

// History implements Store.
func (s *SQLStore) History(ctx context.Context, conversationID string, maxTurns int) ([]core.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT turn_id, role, content, tool_calls, created_at
        FROM conversation_turns WHERE conversation_id = ? ORDER BY sequence_num`),
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("memory: loading history: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var (
			turn  core.Turn
			role  string
			calls sql.NullString
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &calls, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("memory: scanning turn: %w", err)
		}
		turn.Role = core.Role(role)
		if calls.Valid && calls.String != "" {
			if err := json.Unmarshal([]byte(calls.String), &turn.ToolCalls); err != nil {
				return nil, fmt.Errorf("memory: decoding tool calls: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterating history: %w", err)
	}
	return window(turns, maxTurns), nil
}

// Evict implements Store.
func (s *SQLStore) Evict(ctx context.Context, conversationID string) error {
	lock := s.keyLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM conversation_turns WHERE conversation_id = ?`), conversationID); err != nil {
		return fmt.Errorf("memory: evicting turns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM conversations WHERE id = ?`), conversationID); err != nil {
		return fmt.Errorf("memory: evicting conversation: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error { return s.db.Close() }

// evictLocked drops the oldest non-system turns beyond the bound. The
// derived-table indirection keeps the statement valid on all three dialects.
func (s *SQLStore) evictLocked(ctx context.Context, tx *sql.Tx, conversationID string) error {
	if s.maxTurns <= 0 {
		return nil
	}
	var total int
	row := tx.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM conversation_turns WHERE conversation_id = ?`), conversationID)
	if err := row.Scan(&total); err != nil {
		return fmt.Errorf("memory: counting turns: %w", err)
	}
	excess := total - s.maxTurns
	if excess <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM conversation_turns
    WHERE conversation_id = ? AND sequence_num IN (
        SELECT seq FROM (
            SELECT sequence_num AS seq FROM conversation_turns
            WHERE conversation_id = ? AND role <> 'system'
            ORDER BY sequence_num ASC LIMIT ?
        ) oldest
    )`), conversationID, conversationID, excess)
	if err != nil {
		return fmt.Errorf("memory: evicting old turns: %w", err)
	}
	return nil
}

func (s *SQLStore) touchConversation(ctx context.Context, tx *sql.Tx, conversationID string, now time.Time) error {
	var n int
	row := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM conversations WHERE id = ?`), conversationID)
	if err := row.Scan(&n); err != nil {
		return fmt.Errorf("memory: checking conversation: %w", err)
	}
	if n == 0 {
		_, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`),
			conversationID, now, now)
		if err != nil {
			return fmt.Errorf("memory: creating conversation: %w", err)
		}
		return nil
	}
	_, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE conversations SET updated_at = ? WHERE id = ?`), now, conversationID)
	if err != nil {
		return fmt.Errorf("memory: touching conversation: %w", err)
	}
	return nil
}

// keyLock returns the lock serializing writers of one conversation.
func (s *SQLStore) keyLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	return lock
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

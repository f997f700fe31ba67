// Package sqlite provides a durable core.MemoryStore backed by an embedded
// SQLite database (modernc.org/sqlite, no cgo required). Blocks and messages
// are stored in two tables keyed by their record ids; saves are upserts, so
// persisting the same record twice never duplicates data.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/storage"
)

// Store handles database operations for agent memory persistence.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and initializes the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_blocks (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		label TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		max_size INTEGER,
		in_context INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_memory_blocks_agent ON memory_blocks(agent_id);
	CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveBlock inserts or replaces a block by id.
func (s *Store) SaveBlock(agentID core.AgentID, block core.MemoryBlock) error {
	metadata, err := json.Marshal(block.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var maxSize sql.NullInt64
	if block.MaxSize != nil {
		maxSize = sql.NullInt64{Int64: int64(*block.MaxSize), Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO memory_blocks
			(id, agent_id, label, description, value, max_size, in_context, created_at, updated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		string(block.ID), string(agentID), block.Label, block.Description, block.Value,
		maxSize, block.InContext,
		block.CreatedAt.UTC().Format(time.RFC3339Nano),
		block.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}

	return nil
}

// LoadBlock retrieves a single block by id. Missing blocks yield
// storage.ErrNotFound.
func (s *Store) LoadBlock(blockID core.BlockID) (core.MemoryBlock, error) {
	query := `
		SELECT id, label, description, value, max_size, in_context, created_at, updated_at, metadata
		FROM memory_blocks
		WHERE id = ?
	`

	block, err := scanBlock(s.db.QueryRow(query, string(blockID)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MemoryBlock{}, storage.ErrNotFound
	}
	if err != nil {
		return core.MemoryBlock{}, fmt.Errorf("failed to load block: %w", err)
	}

	return block, nil
}

// LoadAgentBlocks retrieves all blocks owned by the agent, oldest first.
func (s *Store) LoadAgentBlocks(agentID core.AgentID) ([]core.MemoryBlock, error) {
	query := `
		SELECT id, label, description, value, max_size, in_context, created_at, updated_at, metadata
		FROM memory_blocks
		WHERE agent_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(query, string(agentID))
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	blocks := make([]core.MemoryBlock, 0)
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}

	return blocks, nil
}

// DeleteBlock removes a block by id. Missing blocks yield storage.ErrNotFound.
func (s *Store) DeleteBlock(blockID core.BlockID) error {
	result, err := s.db.Exec(`DELETE FROM memory_blocks WHERE id = ?`, string(blockID))
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// SaveMessage inserts or replaces a message by id.
func (s *Store) SaveMessage(agentID core.AgentID, message core.MessageEntry) error {
	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var toolCalls sql.NullString
	if len(message.ToolCalls) > 0 {
		encoded, err := json.Marshal(message.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		toolCalls = sql.NullString{String: string(encoded), Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO messages (id, agent_id, timestamp, role, content, tool_calls, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		message.ID, string(agentID),
		message.Timestamp.UTC().Format(time.RFC3339Nano),
		message.Role, message.Content, toolCalls, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// LoadMessages returns the agent's most recent messages in chronological
// order. A non-positive limit returns all messages.
func (s *Store) LoadMessages(agentID core.AgentID, limit int) ([]core.MessageEntry, error) {
	if limit <= 0 {
		return s.queryMessages(`
			SELECT id, timestamp, role, content, tool_calls, metadata
			FROM messages
			WHERE agent_id = ?
			ORDER BY timestamp ASC
		`, string(agentID))
	}

	messages, err := s.queryMessages(`
		SELECT id, timestamp, role, content, tool_calls, metadata
		FROM messages
		WHERE agent_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, string(agentID), limit)
	if err != nil {
		return nil, err
	}

	// restore chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// SearchMessages returns the agent's messages whose content contains the
// query substring (SQLite LIKE, case-insensitive for ASCII), in
// chronological order.
func (s *Store) SearchMessages(agentID core.AgentID, query string) ([]core.MessageEntry, error) {
	return s.queryMessages(`
		SELECT id, timestamp, role, content, tool_calls, metadata
		FROM messages
		WHERE agent_id = ? AND content LIKE ?
		ORDER BY timestamp ASC
	`, string(agentID), "%"+query+"%")
}

// DeleteAgentData removes all blocks and messages owned by the agent.
func (s *Store) DeleteAgentData(agentID core.AgentID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM memory_blocks WHERE agent_id = ?`, string(agentID)); err != nil {
		return fmt.Errorf("failed to delete blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE agent_id = ?`, string(agentID)); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) queryMessages(query string, args ...any) ([]core.MessageEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]core.MessageEntry, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (core.MemoryBlock, error) {
	var (
		block                core.MemoryBlock
		id                   string
		maxSize              sql.NullInt64
		createdAt, updatedAt string
		metadata             string
	)

	err := row.Scan(&id, &block.Label, &block.Description, &block.Value,
		&maxSize, &block.InContext, &createdAt, &updatedAt, &metadata)
	if err != nil {
		return core.MemoryBlock{}, err
	}

	block.ID = core.BlockID(id)
	if maxSize.Valid {
		size := int(maxSize.Int64)
		block.MaxSize = &size
	}
	if block.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return core.MemoryBlock{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if block.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return core.MemoryBlock{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &block.Metadata); err != nil {
		return core.MemoryBlock{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return block, nil
}

func scanMessage(row rowScanner) (core.MessageEntry, error) {
	var (
		message   core.MessageEntry
		timestamp string
		toolCalls sql.NullString
		metadata  string
	)

	err := row.Scan(&message.ID, &timestamp, &message.Role, &message.Content, &toolCalls, &metadata)
	if err != nil {
		return core.MessageEntry{}, err
	}

	if message.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return core.MessageEntry{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	if toolCalls.Valid {
		if err := json.Unmarshal([]byte(toolCalls.String), &message.ToolCalls); err != nil {
			return core.MessageEntry{}, fmt.Errorf("failed to unmarshal tool calls: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(metadata), &message.Metadata); err != nil {
		return core.MessageEntry{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return message, nil
}

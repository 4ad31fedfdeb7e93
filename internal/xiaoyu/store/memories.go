package store

import (
	"context"
	"fmt"
	"time"
)

// Memory categories written by the bot.
const (
	MemoryPersonalInfo = "personal_info"
	MemoryDate         = "date"
)

// Memory is one durably stored personal fact about a user
type Memory struct {
	ID        int64
	UserID    int64
	Category  string
	Content   string
	CreatedAt time.Time
}

// AppendMemory stores one fact for the user. Memories are append-only; there
// is no update or delete path.
func (s *Store) AppendMemory(ctx context.Context, userID int64, category, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (user_id, category, content, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, category, content, time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to append memory for user %d: %w", userID, err)
	}

	return nil
}

// RecentMemories returns up to limit memories for the user, most recent
// first. The id tiebreak keeps the order stable for rows written within the
// same millisecond.
func (s *Store) RecentMemories(ctx context.Context, userID int64, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, content, created_at
		FROM memories
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories for user %d: %w", userID, err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.UserID, &m.Category, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		memories = append(memories, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	return memories, nil
}

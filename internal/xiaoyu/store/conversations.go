package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendConversation records one exchange (inbound text plus the reply that
// was sent) in the write-only conversation log. Returns the row id.
func (s *Store) AppendConversation(ctx context.Context, userID int64, userText, replyText string) (string, error) {
	id := uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, user_text, reply_text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, userText, replyText, time.Now().UnixMilli())

	if err != nil {
		return "", fmt.Errorf("failed to append conversation for user %d: %w", userID, err)
	}

	return id, nil
}

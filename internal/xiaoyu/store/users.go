package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultLanguage is the language assumed for users whose preference is
// unknown or unreadable.
const DefaultLanguage = "zh"

// User represents a chat user profile
type User struct {
	ID         int64
	Username   sql.NullString
	FirstName  sql.NullString
	Language   string
	LastActive time.Time
	CreatedAt  time.Time
}

// UpsertUser inserts the user on first contact and refreshes username,
// first name and last-active on every later one. The language preference is
// never touched here so a /language choice survives subsequent upserts.
func (s *Store) UpsertUser(ctx context.Context, id int64, username, firstName string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_active = excluded.last_active
	`, id, nullableString(username), nullableString(firstName), now.UnixMilli(), now.UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", id, err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	var lastActive, createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, first_name, preferred_language, last_active, created_at
		FROM users
		WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.FirstName, &user.Language, &lastActive, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	user.LastActive = time.UnixMilli(lastActive)
	user.CreatedAt = time.UnixMilli(createdAt)
	return user, nil
}

// Language returns the user's preferred language tag. Unknown users and read
// failures both resolve to DefaultLanguage so a broken read never takes down
// the reply flow.
func (s *Store) Language(ctx context.Context, id int64) string {
	var lang string
	err := s.db.QueryRowContext(ctx,
		"SELECT preferred_language FROM users WHERE id = ?", id,
	).Scan(&lang)

	if err == sql.ErrNoRows {
		return DefaultLanguage
	}
	if err != nil {
		slog.Warn("failed to read user language; using default", "user_id", id, "error", err)
		return DefaultLanguage
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// SetLanguage persists the user's preferred language tag.
func (s *Store) SetLanguage(ctx context.Context, id int64, lang string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET preferred_language = ? WHERE id = ?", lang, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set language for user %d: %w", id, err)
	}
	return nil
}

// LanguageCounts returns how many users prefer each language tag.
func (s *Store) LanguageCounts(ctx context.Context) ([]LanguageCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT preferred_language, COUNT(*)
		FROM users
		WHERE preferred_language IS NOT NULL
		GROUP BY preferred_language
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query language counts: %w", err)
	}
	defer rows.Close()

	var counts []LanguageCount
	for rows.Next() {
		var c LanguageCount
		if err := rows.Scan(&c.Language, &c.Users); err != nil {
			return nil, fmt.Errorf("failed to scan language count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating language counts: %w", err)
	}

	return counts, nil
}

// nullableString maps "" to NULL so empty Telegram fields do not masquerade
// as real values.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

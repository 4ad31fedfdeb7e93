package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Analytics action categories.
const (
	ActionCommand        = "command"
	ActionMessage        = "message"
	ActionMessageError   = "message_error"
	ActionLanguageChange = "language_change"
)

// Snapshot is a helper for the JSON user snapshot attached to an analytics
// event (username, first name, and per-event extras such as message length).
type Snapshot map[string]interface{}

// WriteEvent appends one analytics event. payload is the action-specific
// detail (a command name, "{old}_to_{new}", or a JSON document for message
// events); latencyMS below zero is stored as NULL.
func (s *Store) WriteEvent(ctx context.Context, userID int64, action, payload, sessionID string, snapshot Snapshot, latencyMS int64, now time.Time) error {
	var snapshotJSON sql.NullString
	if snapshot != nil {
		jsonBytes, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal user snapshot: %w", err)
		}
		snapshotJSON = sql.NullString{String: string(jsonBytes), Valid: true}
	}

	var payloadNull sql.NullString
	if payload != "" {
		payloadNull = sql.NullString{String: payload, Valid: true}
	}

	var latencyNull sql.NullInt64
	if latencyMS >= 0 {
		latencyNull = sql.NullInt64{Int64: latencyMS, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics (user_id, action, payload, session_id, user_snapshot, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, userID, action, payloadNull, sessionID, snapshotJSON, latencyNull, now.UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to write analytics event: %w", err)
	}

	return nil
}

// Summary holds the aggregates behind the /analytics report.
type Summary struct {
	DistinctUsers int64
	TotalEvents   int64
	Messages      int64
	Commands      int64
	AvgLatencyMS  float64
	TopUsers      []UserActivity
	CommandUsage  []CommandCount
	Languages     []LanguageCount
}

// UserActivity is one row of the most-active-users ranking.
type UserActivity struct {
	FirstName string
	Username  string
	Events    int64
}

// CommandCount is one row of the per-command usage ranking.
type CommandCount struct {
	Command string
	Count   int64
}

// LanguageCount is one row of the language preference distribution.
type LanguageCount struct {
	Language string
	Users    int64
}

// Summarize aggregates analytics since the given time: overall counters,
// the five most active users, per-command usage, and the language
// distribution across all users (the latter is not time-filtered).
func (s *Store) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	sum := &Summary{}
	sinceMS := since.UnixMilli()

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id),
		       COUNT(*),
		       COUNT(CASE WHEN action = 'message' THEN 1 END),
		       COUNT(CASE WHEN action = 'command' THEN 1 END),
		       COALESCE(AVG(latency_ms), 0)
		FROM analytics
		WHERE created_at >= ?
	`, sinceMS).Scan(&sum.DistinctUsers, &sum.TotalEvents, &sum.Messages, &sum.Commands, &sum.AvgLatencyMS)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate analytics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(u.first_name, ''), COALESCE(u.username, ''), COUNT(*) AS events
		FROM analytics a
		JOIN users u ON u.id = a.user_id
		WHERE a.created_at >= ?
		GROUP BY a.user_id
		ORDER BY events DESC
		LIMIT 5
	`, sinceMS)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ua UserActivity
		if err := rows.Scan(&ua.FirstName, &ua.Username, &ua.Events); err != nil {
			return nil, fmt.Errorf("failed to scan top user: %w", err)
		}
		sum.TopUsers = append(sum.TopUsers, ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top users: %w", err)
	}

	cmdRows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(payload, ''), COUNT(*) AS uses
		FROM analytics
		WHERE action = 'command' AND created_at >= ?
		GROUP BY payload
		ORDER BY uses DESC
	`, sinceMS)
	if err != nil {
		return nil, fmt.Errorf("failed to query command usage: %w", err)
	}
	defer cmdRows.Close()

	for cmdRows.Next() {
		var cc CommandCount
		if err := cmdRows.Scan(&cc.Command, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan command usage: %w", err)
		}
		sum.CommandUsage = append(sum.CommandUsage, cc)
	}
	if err := cmdRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating command usage: %w", err)
	}

	langs, err := s.LanguageCounts(ctx)
	if err != nil {
		return nil, err
	}
	sum.Languages = langs

	return sum, nil
}

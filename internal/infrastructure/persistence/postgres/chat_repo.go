// Package postgres implements the PostgreSQL persistence layer for LingoQuest.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHAT REPOSITORY IMPLEMENTATION
// Reads over the append-only chat_turns log. Writes happen only through
// LessonRepository.SaveExchange.
// ══════════════════════════════════════════════════════════════════════════════

// ChatRepository implements lesson.ChatRepository for PostgreSQL.
type ChatRepository struct {
	conn *Connection
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(conn *Connection) *ChatRepository {
	return &ChatRepository{conn: conn}
}

// CountTurns returns how many turns exist for (user, unit).
func (r *ChatRepository) CountTurns(ctx context.Context, userID, contentID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_turns
		WHERE user_id = $1 AND content_id = $2
	`, userID, contentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat turns: %w", err)
	}
	return count, nil
}

// RecentTurns returns up to limit turns for (user, unit), most recent first.
func (r *ChatRepository) RecentTurns(ctx context.Context, userID, contentID string, limit int) ([]*lesson.ChatTurn, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, lesson_id, content_id, user_id, agent, text, created_at
		FROM chat_turns
		WHERE user_id = $1 AND content_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, userID, contentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// History returns the full conversation for (user, unit) in chronological order.
func (r *ChatRepository) History(ctx context.Context, userID, contentID string) ([]*lesson.ChatTurn, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, lesson_id, content_id, user_id, agent, text, created_at
		FROM chat_turns
		WHERE user_id = $1 AND content_id = $2
		ORDER BY created_at, id
	`, userID, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func scanTurns(rows pgx.Rows) ([]*lesson.ChatTurn, error) {
	var turns []*lesson.ChatTurn
	for rows.Next() {
		var (
			t     lesson.ChatTurn
			agent string
		)
		if err := rows.Scan(&t.ID, &t.LessonID, &t.ContentID, &t.UserID, &agent, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		t.Agent = lesson.Agent(agent)
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// Package postgres implements the PostgreSQL persistence layer for LingoQuest.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lingoquest/lingoquest-backend/internal/domain/lesson"
	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements lesson.Repository for PostgreSQL.
type LessonRepository struct {
	conn *Connection
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(conn *Connection) *LessonRepository {
	return &LessonRepository{conn: conn}
}

// Create persists a lesson shell.
func (r *LessonRepository) Create(ctx context.Context, l *lesson.Lesson) error {
	query := `
		INSERT INTO lessons (
			id, user_id, title, request, language, status, generating_status,
			last_accessed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.Exec(ctx, query,
		l.ID,
		l.UserID,
		l.Title,
		l.Request,
		l.Language.String(),
		string(l.Status),
		string(l.GeneratingStatus),
		l.LastAccessedAt,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

// GetByID returns a lesson with its units in sequence order.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*lesson.Lesson, error) {
	query := `
		SELECT id, user_id, title, request, language, status, generating_status,
			   last_accessed_at, created_at, updated_at
		FROM lessons
		WHERE id = $1
	`

	l, err := r.scanLesson(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadUnits(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetByUser lists a user's lessons ordered by last access, newest first.
// Units are loaded per lesson; listings stay small per user.
func (r *LessonRepository) GetByUser(ctx context.Context, userID string) ([]*lesson.Lesson, error) {
	query := `
		SELECT id, user_id, title, request, language, status, generating_status,
			   last_accessed_at, created_at, updated_at
		FROM lessons
		WHERE user_id = $1
		ORDER BY last_accessed_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*lesson.Lesson
	for rows.Next() {
		l, err := r.scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, l := range lessons {
		if err := r.loadUnits(ctx, l); err != nil {
			return nil, err
		}
	}
	return lessons, nil
}

// Update persists lesson-level fields and all unit states in one transaction.
func (r *LessonRepository) Update(ctx context.Context, l *lesson.Lesson) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := r.updateLessonTx(ctx, tx, l); err != nil {
			return err
		}
		for _, u := range l.Units {
			if err := r.upsertUnitTx(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindStaleGenerating lists lessons stuck in the generating state whose
// last update is older than the cutoff. Units are not loaded; the reaper
// only flips the generating status.
func (r *LessonRepository) FindStaleGenerating(ctx context.Context, olderThan time.Time) ([]*lesson.Lesson, error) {
	query := `
		SELECT id, user_id, title, request, language, status, generating_status,
			   last_accessed_at, created_at, updated_at
		FROM lessons
		WHERE generating_status = $1 AND updated_at < $2
	`

	rows, err := r.conn.Query(ctx, query, string(lesson.GeneratingInProgress), olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale generations: %w", err)
	}
	defer rows.Close()

	var lessons []*lesson.Lesson
	for rows.Next() {
		l, err := r.scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// SaveExchange atomically persists one judged interaction: the lesson row,
// the graded unit, and the paired turns with the user turn strictly first.
func (r *LessonRepository) SaveExchange(ctx context.Context, l *lesson.Lesson, unit *lesson.ContentUnit, userTurn, aiTurn *lesson.ChatTurn) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := r.updateLessonTx(ctx, tx, l); err != nil {
			return err
		}
		if err := r.upsertUnitTx(ctx, tx, unit); err != nil {
			return err
		}
		if err := insertTurnTx(ctx, tx, userTurn); err != nil {
			return err
		}
		return insertTurnTx(ctx, tx, aiTurn)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *LessonRepository) updateLessonTx(ctx context.Context, tx pgx.Tx, l *lesson.Lesson) error {
	tag, err := tx.Exec(ctx, `
		UPDATE lessons
		SET title = $2,
			status = $3,
			generating_status = $4,
			last_accessed_at = $5,
			updated_at = $6
		WHERE id = $1
	`,
		l.ID,
		l.Title,
		string(l.Status),
		string(l.GeneratingStatus),
		l.LastAccessedAt,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLessonNotFound
	}
	return nil
}

func (r *LessonRepository) upsertUnitTx(ctx context.Context, tx pgx.Tx, u *lesson.ContentUnit) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO content_units (
			id, lesson_id, sequence_number, title, body,
			completion_status, current_progress, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET completion_status = EXCLUDED.completion_status,
			current_progress = EXCLUDED.current_progress,
			updated_at = EXCLUDED.updated_at
	`,
		u.ID,
		u.LessonID,
		u.SequenceNumber,
		u.Title,
		u.Body,
		string(u.CompletionStatus),
		u.CurrentProgress,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content unit: %w", err)
	}
	return nil
}

func insertTurnTx(ctx context.Context, tx pgx.Tx, t *lesson.ChatTurn) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO chat_turns (id, lesson_id, content_id, user_id, agent, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		t.ID,
		t.LessonID,
		t.ContentID,
		t.UserID,
		string(t.Agent),
		t.Text,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat turn: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *LessonRepository) scanLesson(row pgx.Row) (*lesson.Lesson, error) {
	var (
		l                lesson.Lesson
		language         string
		status           string
		generatingStatus string
	)

	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.Title,
		&l.Request,
		&language,
		&status,
		&generatingStatus,
		&l.LastAccessedAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to scan lesson: %w", err)
	}

	l.Language = shared.LanguageCode(language)
	l.Status = lesson.Status(status)
	l.GeneratingStatus = lesson.GeneratingStatus(generatingStatus)
	return &l, nil
}

func (r *LessonRepository) loadUnits(ctx context.Context, l *lesson.Lesson) error {
	rows, err := r.conn.Query(ctx, `
		SELECT id, lesson_id, sequence_number, title, body,
			   completion_status, current_progress, created_at, updated_at
		FROM content_units
		WHERE lesson_id = $1
		ORDER BY sequence_number
	`, l.ID)
	if err != nil {
		return fmt.Errorf("failed to query content units: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u      lesson.ContentUnit
			status string
		)
		if err := rows.Scan(
			&u.ID,
			&u.LessonID,
			&u.SequenceNumber,
			&u.Title,
			&u.Body,
			&status,
			&u.CurrentProgress,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan content unit: %w", err)
		}
		u.CompletionStatus = lesson.CompletionStatus(status)
		l.Units = append(l.Units, &u)
	}
	return rows.Err()
}

// Package postgres implements the PostgreSQL persistence layer for LingoQuest.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// The aggregate (user row plus its progress counters) loads and saves as
// one unit; the version column carries the optimistic lock.
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, display_name, native_language,
			total_points, level, login_streak, last_login_at, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID,
		u.Email.String(),
		u.PasswordHash,
		u.DisplayName,
		u.NativeLanguage.String(),
		u.TotalPoints,
		u.Level,
		u.LoginStreak,
		u.LastLoginAt,
		u.Version,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user with all task progress loaded.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, native_language,
			   total_points, level, login_streak, last_login_at, version,
			   created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u, err := r.scanUser(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadProgress(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns a user by normalized email, with all task progress.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, native_language,
			   total_points, level, login_streak, last_login_at, version,
			   created_at, updated_at
		FROM users
		WHERE email = $1
	`

	u, err := r.scanUser(r.conn.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}
	if err := r.loadProgress(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update persists the aggregate in one transaction guarded by the version
// column. A zero-row update means another writer bumped the version first.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET email = $2,
				password_hash = $3,
				display_name = $4,
				native_language = $5,
				total_points = $6,
				level = $7,
				login_streak = $8,
				last_login_at = $9,
				version = version + 1,
				updated_at = $10
			WHERE id = $1 AND version = $11
		`,
			u.ID,
			u.Email.String(),
			u.PasswordHash,
			u.DisplayName,
			u.NativeLanguage.String(),
			u.TotalPoints,
			u.Level,
			u.LoginStreak,
			u.LastLoginAt,
			u.UpdatedAt,
			u.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrOptimisticLock
		}

		for _, p := range u.Progress {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_task_progress (user_id, task_id, count, required_count, points, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, task_id) DO UPDATE
				SET count = EXCLUDED.count,
					completed_at = COALESCE(user_task_progress.completed_at, EXCLUDED.completed_at)
			`, u.ID, p.TaskID, p.Count, p.RequiredCount, p.Points, p.CompletedAt); err != nil {
				return fmt.Errorf("failed to upsert task progress: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	u.Version++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var (
		u              user.User
		email          string
		nativeLanguage string
		lastLoginAt    *time.Time
	)

	err := row.Scan(
		&u.ID,
		&email,
		&u.PasswordHash,
		&u.DisplayName,
		&nativeLanguage,
		&u.TotalPoints,
		&u.Level,
		&u.LoginStreak,
		&lastLoginAt,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Email = shared.Email(email)
	u.NativeLanguage = shared.LanguageCode(nativeLanguage)
	u.LastLoginAt = lastLoginAt
	u.Progress = make(map[string]*user.TaskProgress)
	return &u, nil
}

func (r *UserRepository) loadProgress(ctx context.Context, u *user.User) error {
	rows, err := r.conn.Query(ctx, `
		SELECT task_id, count, required_count, points, completed_at
		FROM user_task_progress
		WHERE user_id = $1
	`, u.ID)
	if err != nil {
		return fmt.Errorf("failed to query task progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p user.TaskProgress
		if err := rows.Scan(&p.TaskID, &p.Count, &p.RequiredCount, &p.Points, &p.CompletedAt); err != nil {
			return fmt.Errorf("failed to scan task progress: %w", err)
		}
		u.Progress[p.TaskID] = &p
	}
	return rows.Err()
}

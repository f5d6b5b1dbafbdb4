// Package postgres implements the PostgreSQL persistence layer for LingoQuest.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lingoquest/lingoquest-backend/internal/domain/shared"
	"github.com/lingoquest/lingoquest-backend/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	conn *Connection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(conn *Connection) *TaskRepository {
	return &TaskRepository{conn: conn}
}

const taskColumns = `id, title, description, category, level, display_order,
	   points, required_count, prerequisites, created_at, updated_at`

// Upsert inserts or updates a task definition. Startup seeding runs this
// for the whole catalog on every boot.
func (r *TaskRepository) Upsert(ctx context.Context, def task.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (
			id, title, description, category, level, display_order,
			points, required_count, prerequisites, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			level = EXCLUDED.level,
			display_order = EXCLUDED.display_order,
			points = EXCLUDED.points,
			required_count = EXCLUDED.required_count,
			prerequisites = EXCLUDED.prerequisites,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		def.ID,
		def.Title,
		def.Description,
		def.Category.String(),
		def.Level,
		def.Order,
		def.Points,
		def.RequiredCount,
		def.Prerequisites,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}
	return nil
}

// GetByID returns a task definition by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (task.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	return r.scanTask(r.conn.QueryRow(ctx, query, id))
}

// GetAll returns every task definition ordered by (level, order).
func (r *TaskRepository) GetAll(ctx context.Context) ([]task.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks ORDER BY level, display_order`, taskColumns)
	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

// GetByCategory returns definitions of one category ordered by (level, order).
func (r *TaskRepository) GetByCategory(ctx context.Context, category task.Category) ([]task.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE category = $1 ORDER BY level, display_order`, taskColumns)
	rows, err := r.conn.Query(ctx, query, category.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by category: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

// GetByLevel returns definitions gated at the given level ordered by order.
func (r *TaskRepository) GetByLevel(ctx context.Context, level int) ([]task.Definition, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE level = $1 ORDER BY display_order`, taskColumns)
	rows, err := r.conn.Query(ctx, query, level)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by level: %w", err)
	}
	defer rows.Close()
	return r.scanTasks(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *TaskRepository) scanTask(row pgx.Row) (task.Definition, error) {
	var (
		def      task.Definition
		category string
	)
	err := row.Scan(
		&def.ID,
		&def.Title,
		&def.Description,
		&category,
		&def.Level,
		&def.Order,
		&def.Points,
		&def.RequiredCount,
		&def.Prerequisites,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return task.Definition{}, shared.ErrTaskNotFound
		}
		return task.Definition{}, fmt.Errorf("failed to scan task: %w", err)
	}
	def.Category = task.Category(category)
	return def, nil
}

func (r *TaskRepository) scanTasks(rows pgx.Rows) ([]task.Definition, error) {
	var defs []task.Definition
	for rows.Next() {
		def, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Package postgres implements the PostgreSQL persistence layer for LingoQuest.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create users table
-- Version: 001

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name VARCHAR(100) NOT NULL,
    native_language VARCHAR(16) NOT NULL DEFAULT 'en',
    total_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    login_streak INTEGER NOT NULL DEFAULT 0,
    last_login_at TIMESTAMP WITH TIME ZONE,
    version BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_login_streak CHECK (login_streak >= 0)
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE TASKS AND PER-USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create task catalog and user task progress
-- Version: 002

CREATE TABLE IF NOT EXISTS tasks (
    id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(20) NOT NULL,
    level INTEGER NOT NULL DEFAULT 1,
    display_order INTEGER NOT NULL DEFAULT 0,
    points INTEGER NOT NULL DEFAULT 0,
    required_count INTEGER NOT NULL DEFAULT 1,
    prerequisites TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_category CHECK (category IN ('LESSON', 'CONTENT', 'STREAK')),
    CONSTRAINT valid_points CHECK (points >= 0),
    CONSTRAINT valid_required_count CHECK (required_count >= 1),
    CONSTRAINT valid_task_level CHECK (level >= 1)
);

CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category, level, display_order);
CREATE INDEX IF NOT EXISTS idx_tasks_level ON tasks(level, display_order);

-- Per-user counters against the catalog. Loaded and saved together with
-- the owning user row.
CREATE TABLE IF NOT EXISTS user_task_progress (
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    task_id VARCHAR(64) NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    count INTEGER NOT NULL DEFAULT 0,
    required_count INTEGER NOT NULL,
    points INTEGER NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,

    PRIMARY KEY (user_id, task_id),
    CONSTRAINT valid_progress_count CHECK (count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_user_task_progress_user ON user_task_progress(user_id);
`

const migration002Down = `
DROP TABLE IF EXISTS user_task_progress;
DROP TABLE IF EXISTS tasks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE LESSONS AND CONTENT UNITS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create lessons and content units
-- Version: 003

CREATE TABLE IF NOT EXISTS lessons (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title VARCHAR(300) NOT NULL DEFAULT '',
    request TEXT NOT NULL,
    language VARCHAR(16) NOT NULL DEFAULT 'en',
    status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    generating_status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    last_accessed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_lesson_status CHECK (status IN ('not_started', 'in_progress', 'completed')),
    CONSTRAINT valid_generating_status CHECK (generating_status IN ('not_started', 'in_progress', 'completed', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_lessons_user ON lessons(user_id, last_accessed_at DESC);

CREATE TABLE IF NOT EXISTS content_units (
    id UUID PRIMARY KEY,
    lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    sequence_number INTEGER NOT NULL,
    title VARCHAR(300) NOT NULL,
    body TEXT NOT NULL,
    completion_status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    current_progress INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT unique_sequence UNIQUE (lesson_id, sequence_number),
    CONSTRAINT valid_sequence_number CHECK (sequence_number >= 1),
    CONSTRAINT valid_completion_status CHECK (completion_status IN ('not_started', 'in_progress', 'completed')),
    CONSTRAINT valid_current_progress CHECK (current_progress >= 0 AND current_progress <= 100)
);

CREATE INDEX IF NOT EXISTS idx_content_units_lesson ON content_units(lesson_id, sequence_number);
`

const migration003Down = `
DROP TABLE IF EXISTS content_units;
DROP TABLE IF EXISTS lessons;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE CHAT TURNS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create chat turns (append-only conversation log)
-- Version: 004

CREATE TABLE IF NOT EXISTS chat_turns (
    id UUID PRIMARY KEY,
    lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    content_id UUID NOT NULL REFERENCES content_units(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    agent VARCHAR(8) NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_agent CHECK (agent IN ('USER', 'AI'))
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_user_content ON chat_turns(user_id, content_id, created_at);
`

const migration004Down = `
DROP TABLE IF EXISTS chat_turns;
`

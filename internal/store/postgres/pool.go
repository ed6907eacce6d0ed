// Package postgres adapts github.com/jackc/pgx/v5/pgxpool to the
// orchestrator's ports.AgentStore, ports.PromptStore, ports.ChainStore,
// ports.TaskStore, ports.UserStore, and ports.ConversationStore
// interfaces: CREATE TABLE IF NOT EXISTS on Init, ON CONFLICT DO UPDATE
// for upserts, and json.Marshal/Unmarshal for nested Go structs stored in
// a JSONB column.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects a pgxpool.Pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// InitSchema creates every table the adapters in this package need, if
// they do not already exist. Safe to call on every process start.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	owner_user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	settings JSONB NOT NULL DEFAULT '{}',
	commands JSONB NOT NULL DEFAULT '{}',
	status JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner_user_id, name)
);

CREATE TABLE IF NOT EXISTS prompts (
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	user_id TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (category, name, user_id)
);

CREATE TABLE IF NOT EXISTS chains (
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	steps JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (user_id, name)
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	due_date TIMESTAMPTZ NOT NULL,
	scheduled BOOLEAN NOT NULL DEFAULT true,
	completed BOOLEAN NOT NULL DEFAULT false,
	objective TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	claimed_until TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS conversations (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_by TEXT NOT NULL DEFAULT '',
	feedback_received BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS conversation_messages_convo_idx ON conversation_messages(conversation_id, timestamp);
`)
	return err
}

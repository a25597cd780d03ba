package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS topics (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            is_private BOOLEAN NOT NULL DEFAULT FALSE,
            creator_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_activity_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS topics_name_lower_idx ON topics (LOWER(name));`,
		`CREATE TABLE IF NOT EXISTS topic_members (
            topic_id UUID NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(topic_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS topic_admins (
            topic_id UUID NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(topic_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            topic_id UUID NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            sender_username TEXT NOT NULL,
            content TEXT NOT NULL,
            is_edited BOOLEAN NOT NULL DEFAULT FALSE,
            edited_at TIMESTAMPTZ,
            reply_to UUID REFERENCES messages(id) ON DELETE SET NULL,
            reactions JSONB NOT NULL DEFAULT '[]'::jsonb,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_topic_created_idx ON messages (topic_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

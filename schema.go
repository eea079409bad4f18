package main

import "database/sql"

func ensureSchema(db *sql.DB) error {

	// users
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id SERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			username TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_login TIMESTAMPTZ,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			position_x REAL NOT NULL DEFAULT 0,
			position_y REAL NOT NULL DEFAULT 0,
			last_saved_at TIMESTAMPTZ
		);
	`)
	if err != nil {
		return err
	}

	// Backs the case-insensitive duplicate check; concurrent registrations
	// serialize here, not at the pre-check.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
		ON users (lower(email));
	`)
	if err != nil {
		return err
	}

	// farms (exactly one per user)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS farms (
			farm_id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL UNIQUE REFERENCES users (user_id),
			farm_name TEXT NOT NULL DEFAULT 'My Farm',
			level INTEGER NOT NULL DEFAULT 1,
			coins INTEGER NOT NULL DEFAULT 1000,
			gems INTEGER NOT NULL DEFAULT 50
		);
	`)
	if err != nil {
		return err
	}

	// farm_items, one row per occupied grid slot
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS farm_items (
			item_id SERIAL PRIMARY KEY,
			farm_id INTEGER NOT NULL REFERENCES farms (farm_id),
			item_type TEXT NOT NULL,
			item_name TEXT NOT NULL,
			position_x REAL NOT NULL,
			position_y REAL NOT NULL,
			growth_stage INTEGER NOT NULL DEFAULT 0,
			planted_at TIMESTAMPTZ NOT NULL,
			UNIQUE (farm_id, position_x, position_y)
		);
	`)
	if err != nil {
		return err
	}

	// chat_messages, append-only
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			message_id SERIAL PRIMARY KEY,
			sender_id INTEGER NOT NULL REFERENCES users (user_id),
			message_text TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'global',
			sent_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chat_messages_sent_at
		ON chat_messages (sent_at);
	`)
	if err != nil {
		return err
	}

	// inventory_seeds, one row per (user, seed type)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS inventory_seeds (
			user_id INTEGER NOT NULL REFERENCES users (user_id),
			seed_type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, seed_type)
		);
	`)
	if err != nil {
		return err
	}

	// sessions
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users (user_id),
			expires_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id
		ON sessions (user_id);
	`)
	return err
}

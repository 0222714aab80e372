package postgres

import (
	"database/sql"
	"fmt"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrations stick to the SQL subset shared by PostgreSQL and SQLite so the
// same schema backs both drivers.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id VARCHAR(36) PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		date TIMESTAMP NOT NULL,
		time VARCHAR(50) NOT NULL DEFAULT '',
		location VARCHAR(255) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		dress_code VARCHAR(255) NOT NULL DEFAULT '',
		hashtag VARCHAR(100) NOT NULL DEFAULT '',
		guest_limit INTEGER,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS invites (
		id VARCHAR(36) PRIMARY KEY,
		event_id VARCHAR(36) NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		guest_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		qr_code VARCHAR(512) NOT NULL,
		guest_limit INTEGER,
		guest_count INTEGER NOT NULL DEFAULT 0,
		rsvp_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		message TEXT NOT NULL DEFAULT '',
		sent_at TIMESTAMP,
		viewed_at TIMESTAMP,
		rsvp_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS companion_invites (
		id VARCHAR(36) PRIMARY KEY,
		invite_id VARCHAR(36) NOT NULL REFERENCES invites(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		token VARCHAR(128) UNIQUE NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (invite_id, email)
	)`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id VARCHAR(36) PRIMARY KEY,
		invite_id VARCHAR(36) NOT NULL REFERENCES invites(id) ON DELETE CASCADE,
		event_id VARCHAR(36) NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		type VARCHAR(20) NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		sent_at TIMESTAMP NOT NULL
	)`,

	// Indexes
	`CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_event_id ON invites(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_qr_code ON invites(qr_code)`,
	`CREATE INDEX IF NOT EXISTS idx_companion_invites_invite_id ON companion_invites(invite_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_event_id ON reminders(event_id)`,
}

func RunMigrations(db *sql.DB) error {
	for _, migration := range Migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

const outpassSchema = `
CREATE TABLE IF NOT EXISTS outpass_requests (
	id UUID PRIMARY KEY,
	student_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	destination TEXT NOT NULL,
	transport_mode TEXT NOT NULL,
	start_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_date TEXT NOT NULL,
	end_time TEXT NOT NULL,
	contact_name TEXT NOT NULL,
	contact_phone TEXT,
	parent_consent BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	rejection_reason TEXT,
	parent_id UUID,
	origin TEXT NOT NULL DEFAULT 'server',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outpass_requests_student
	ON outpass_requests (student_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_outpass_requests_origin
	ON outpass_requests (origin) WHERE origin = 'local';
`

// EnsureSchema creates the local outpass mirror table used by the degraded
// write path and the history fallback read.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(outpassSchema); err != nil {
		return fmt.Errorf("ensure outpass schema: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to database...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ Database connection failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Database ping failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection successful")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK(role IN ('user', 'admin')),
			points INT NOT NULL DEFAULT 0,
			total_items_recycled INT NOT NULL DEFAULT 0,
			total_co2_saved DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bins table
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			qr_code TEXT NOT NULL DEFAULT '',
			accepted_items TEXT[] NOT NULL DEFAULT '{}',
			fill_level INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'operational' CHECK(status IN ('operational', 'full', 'maintenance')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create transactions table
		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			bin_id TEXT,
			type TEXT NOT NULL CHECK(type IN ('scan', 'recycle', 'sell')),
			item_name TEXT NOT NULL,
			item_type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			points_earned INT NOT NULL DEFAULT 0,
			verification_method TEXT NOT NULL CHECK(verification_method IN ('qr_scan', 'self_report', 'admin_confirm', 'ai_vision_verified')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'approved', 'rejected')),
			verified_at BIGINT,
			captured_at BIGINT,
			verified_latitude DOUBLE PRECISION,
			verified_longitude DOUBLE PRECISION,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE SET NULL
		)`,

		// Create scan_logs table
		`CREATE TABLE IF NOT EXISTS scan_logs (
			id SERIAL PRIMARY KEY,
			item_type TEXT NOT NULL,
			category TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			user_id TEXT,
			detected_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		)`,

		// Create city_requests table
		`CREATE TABLE IF NOT EXISTS city_requests (
			id SERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			email TEXT,
			ip TEXT NOT NULL DEFAULT 'unknown',
			user_agent TEXT NOT NULL DEFAULT 'unknown',
			requested_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// The dedup key for drop-off idempotency: a retried submit with the
		// same transaction_id hits this index instead of double-crediting
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_transaction_id ON transactions(transaction_id)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_status ON bins(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_location ON bins(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_bin_id ON transactions(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
		// Serves the daily rate-limit count
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_type_status ON transactions(user_id, type, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_logs_user_id ON scan_logs(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_logs_detected_at ON scan_logs(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_city_requests_city ON city_requests(city, requested_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}

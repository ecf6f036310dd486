package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecodrop-backend/internal/dropoff"
	"ecodrop-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DropoffStore backs the verification pipeline with Postgres. It implements
// both dropoff.BinSource and dropoff.Store.
type DropoffStore struct {
	db *sqlx.DB
}

func NewDropoffStore(db *sqlx.DB) *DropoffStore {
	return &DropoffStore{db: db}
}

func (s *DropoffStore) GetBin(ctx context.Context, binID string) (*models.Bin, error) {
	var bin models.Bin
	err := s.db.GetContext(ctx, &bin, `
		SELECT id, name, address, city, latitude, longitude, qr_code,
		       accepted_items, fill_level, status, created_at, updated_at
		FROM bins
		WHERE id = $1
	`, binID)
	if err == sql.ErrNoRows {
		return nil, dropoff.ErrBinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bin: %w", err)
	}
	return &bin, nil
}

func (s *DropoffStore) CountApprovedRecycleSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND type = 'recycle' AND status = 'approved' AND created_at >= $2
	`, userID, since.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// CommitDropoff writes the batch and credits the user inside one database
// transaction. The user row is locked first so concurrent drop-offs for the
// same user serialize on the rate-limit re-check, and the aggregate
// increment runs last: a crash can leave persisted-but-uncredited
// transactions (recoverable by replay), never credited-but-unpersisted ones.
func (s *DropoffStore) CommitDropoff(ctx context.Context, c dropoff.Commit) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.GetContext(ctx, &lockedID, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, c.UserID)
	if err == sql.ErrNoRows {
		return dropoff.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock user row: %w", err)
	}

	// Re-check the daily cap under the lock; the service's earlier check
	// may have raced another request
	var count int
	err = tx.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND type = 'recycle' AND status = 'approved' AND created_at >= $2
	`, c.UserID, c.RateLimitSince.Unix())
	if err != nil {
		return fmt.Errorf("failed to recount transactions: %w", err)
	}
	if count >= c.MaxPerDay {
		return dropoff.ErrRateLimited
	}

	for _, t := range c.Transactions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (
				transaction_id, user_id, bin_id, type, item_name, item_type,
				confidence, value, points_earned, verification_method, status,
				verified_at, captured_at, verified_latitude, verified_longitude, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`, t.TransactionID, t.UserID, t.BinID, t.Type, t.ItemName, t.ItemType,
			t.Confidence, t.Value, t.PointsEarned, t.VerificationMethod, t.Status,
			t.VerifiedAt, t.CapturedAt, t.VerifiedLatitude, t.VerifiedLongitude, t.CreatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				// Unique index on transaction_id: the dedup key the
				// client supplied was already used
				return dropoff.ErrDuplicateTransaction
			}
			return fmt.Errorf("failed to insert transaction %s: %w", t.TransactionID, err)
		}
	}

	// Aggregate increment is the last step and relies on the database's
	// atomic update, never a read-modify-write in application code
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET points = points + $1,
		    total_items_recycled = total_items_recycled + $2,
		    total_co2_saved = total_co2_saved + $3,
		    updated_at = $4
		WHERE id = $5
	`, c.TotalPoints, c.TotalItems, c.TotalCO2, time.Now().Unix(), c.UserID)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return dropoff.ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drop-off: %w", err)
	}
	return nil
}

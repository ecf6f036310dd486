package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecodrop-backend/internal/dropoff"
	"ecodrop-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*DropoffStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDropoffStore(sqlx.NewDb(db, "sqlmock")), mock
}

func sampleCommit() dropoff.Commit {
	binID := "bin-002"
	verifiedAt := time.Now().Unix()
	lat, lng := 25.4534, 81.8340
	return dropoff.Commit{
		UserID: "user-1",
		Transactions: []models.Transaction{{
			TransactionID:      "TXN-1700000000000-ABCD1234",
			UserID:             "user-1",
			BinID:              &binID,
			Type:               models.TransactionTypeRecycle,
			ItemName:           "Old Laptop",
			ItemType:           "e-waste",
			Confidence:         1.0,
			Value:              50,
			PointsEarned:       100,
			VerificationMethod: models.VerificationSelfReport,
			Status:             models.TransactionStatusApproved,
			VerifiedAt:         &verifiedAt,
			CapturedAt:         &verifiedAt,
			VerifiedLatitude:   &lat,
			VerifiedLongitude:  &lng,
			CreatedAt:          verifiedAt,
		}},
		TotalPoints:    100,
		TotalItems:     1,
		TotalCO2:       0.5,
		RateLimitSince: time.Now().Truncate(24 * time.Hour),
		MaxPerDay:      5,
	}
}

func TestGetBinNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, address").
		WithArgs("bin-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetBin(context.Background(), "bin-missing")
	if !errors.Is(err, dropoff.ErrBinNotFound) {
		t.Errorf("err = %v, want ErrBinNotFound", err)
	}
}

func TestCommitDropoffHappyPath(t *testing.T) {
	store, mock := newMockStore(t)
	c := sampleCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(c.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(c.UserID))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(c.UserID, c.RateLimitSince.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.CommitDropoff(context.Background(), c); err != nil {
		t.Fatalf("CommitDropoff failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitDropoffUserMissing(t *testing.T) {
	store, mock := newMockStore(t)
	c := sampleCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(c.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.CommitDropoff(context.Background(), c)
	if !errors.Is(err, dropoff.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCommitDropoffRateLimitedUnderLock(t *testing.T) {
	store, mock := newMockStore(t)
	c := sampleCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(c.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(c.UserID))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(c.UserID, c.RateLimitSince.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	err := store.CommitDropoff(context.Background(), c)
	if !errors.Is(err, dropoff.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestCommitDropoffDuplicateTransactionID(t *testing.T) {
	store, mock := newMockStore(t)
	c := sampleCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM users").
		WithArgs(c.UserID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(c.UserID))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(c.UserID, c.RateLimitSince.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.CommitDropoff(context.Background(), c)
	if !errors.Is(err, dropoff.ErrDuplicateTransaction) {
		t.Errorf("err = %v, want ErrDuplicateTransaction", err)
	}
}

func TestCountApprovedRecycleSince(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Now().Add(-6 * time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", since.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.CountApprovedRecycleSince(context.Background(), "user-1", since)
	if err != nil {
		t.Fatalf("CountApprovedRecycleSince failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

package dropoff

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/models"
)

const (
	// QRProximityRadiusMeters is enforced server-side for qr_scan drop-offs.
	// Distinct from the 50m client dwell radius; do not unify them.
	QRProximityRadiusMeters = 100.0

	// MaxDropoffsPerDay caps approved recycle transactions per user per day
	MaxDropoffsPerDay = 5

	// MaxCaptureAge bounds the replay window for a captured claim
	MaxCaptureAge = 15 * time.Minute

	// CO2SavedPerItemKg is the rough per-item CO2 credit
	CO2SavedPerItemKg = 0.5
)

// BinSource looks bins up by id. Returns ErrBinNotFound when absent.
type BinSource interface {
	GetBin(ctx context.Context, binID string) (*models.Bin, error)
}

// Store is the durable persistence capability. A Service without one runs
// in degraded mode: no rate limiting, transactions returned to the caller
// unpersisted.
type Store interface {
	// CountApprovedRecycleSince counts the user's approved recycle
	// transactions created at or after since.
	CountApprovedRecycleSince(ctx context.Context, userID string, since time.Time) (int, error)

	// CommitDropoff writes the batch and increments the user's aggregates
	// as one database transaction. It re-checks the rate limit with the
	// user row locked so two concurrent drop-offs cannot both slip under
	// the cap, and returns ErrUserNotFound, ErrRateLimited or
	// ErrDuplicateTransaction accordingly.
	CommitDropoff(ctx context.Context, c Commit) error
}

// Commit is everything CommitDropoff needs to persist atomically
type Commit struct {
	UserID         string
	Transactions   []models.Transaction
	TotalPoints    int
	TotalItems     int
	TotalCO2       float64
	RateLimitSince time.Time
	MaxPerDay      int
}

// Coordinates is the client-supplied position. Pointers so an empty
// userLocation object is distinguishable from a real fix at (0, 0).
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Item is one element of a drop-off batch. Value is a pointer so a missing
// value is distinguishable from zero; items failing validation are skipped
// individually rather than failing the batch.
type Item struct {
	ItemName string   `json:"itemName"`
	ItemType string   `json:"itemType"`
	Value    *float64 `json:"value"`
}

// UnmarshalJSON tolerates a wrong-typed value field (e.g. "50" as a
// string): the item decodes with Value nil and is skipped individually
// instead of failing the whole batch.
func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemName string          `json:"itemName"`
		ItemType string          `json:"itemType"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	i.ItemName = raw.ItemName
	i.ItemType = raw.ItemType
	i.Value = nil
	if len(raw.Value) > 0 {
		var v float64
		if err := json.Unmarshal(raw.Value, &v); err == nil {
			i.Value = &v
		}
	}
	return nil
}

// Request is the drop-off verification input contract
type Request struct {
	UserID             string       `json:"userId"`
	BinID              string       `json:"binId"`
	Items              []Item       `json:"items"`
	VerificationMethod string       `json:"verificationMethod"`
	UserLocation       *Coordinates `json:"userLocation"`
	CapturedAt         string       `json:"capturedAt,omitempty"`    // RFC3339
	TransactionID      string       `json:"transactionId,omitempty"` // honored for the first item only
}

// Result is the successful verification outcome
type Result struct {
	PointsEarned   int                  `json:"pointsEarned"`
	ItemsRecycled  int                  `json:"itemsRecycled"`
	CO2Saved       float64              `json:"co2Saved"`
	TransactionIDs []string             `json:"transactionIds"`
	Transactions   []models.Transaction `json:"transactions"`
	Persisted      bool                 `json:"persisted"`
}

// Service is the authoritative acceptance gate for completed drop-offs. It
// does not trust the client's dwell-time claim; everything is re-validated
// server-side.
type Service struct {
	bins  BinSource
	store Store // nil in degraded mode
}

func NewService(bins BinSource, store Store) *Service {
	return &Service{bins: bins, store: store}
}

// Persistent reports whether a durable store is configured
func (s *Service) Persistent() bool {
	return s.store != nil
}

// Verify runs the ordered validation pipeline and persists the batch.
// Failures are returned as *VerificationError with a user-facing message.
func (s *Service) Verify(ctx context.Context, req *Request) (*Result, error) {
	now := time.Now()

	// 1. Structural validation
	if req.UserID == "" || req.BinID == "" || len(req.Items) == 0 {
		return nil, &VerificationError{
			Code:    CodeInvalidRequest,
			Status:  http.StatusBadRequest,
			Message: "Missing required fields: userId, binId, items",
		}
	}
	if req.UserLocation == nil || req.UserLocation.Latitude == nil || req.UserLocation.Longitude == nil {
		return nil, &VerificationError{
			Code:    CodeInvalidRequest,
			Status:  http.StatusBadRequest,
			Message: "Valid userLocation (latitude, longitude) is required",
		}
	}
	userLat, userLng := *req.UserLocation.Latitude, *req.UserLocation.Longitude

	// 2. Timestamp freshness bounds the replay window
	var capturedAt *time.Time
	if req.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			return nil, &VerificationError{
				Code:    CodeInvalidRequest,
				Status:  http.StatusBadRequest,
				Message: "capturedAt must be an RFC3339 timestamp",
			}
		}
		capturedAt = &parsed

		if age := now.Sub(parsed); age > MaxCaptureAge {
			return nil, &VerificationError{
				Code:   CodeStaleCapture,
				Status: http.StatusBadRequest,
				Message: fmt.Sprintf("Timestamp is too old (%d minutes). Please capture items within %d minutes of drop-off.",
					int(age.Minutes()), int(MaxCaptureAge.Minutes())),
			}
		}
		if parsed.After(now) {
			return nil, &VerificationError{
				Code:    CodeInvalidTimestamp,
				Status:  http.StatusBadRequest,
				Message: "Invalid timestamp: Future dates are not allowed",
			}
		}
	}

	// 3. Bin existence and operability
	bin, err := s.bins.GetBin(ctx, req.BinID)
	if err != nil {
		if errors.Is(err, ErrBinNotFound) {
			return nil, &VerificationError{
				Code:    CodeBinNotFound,
				Status:  http.StatusNotFound,
				Message: "Bin not found",
			}
		}
		return nil, fmt.Errorf("failed to look up bin %s: %w", req.BinID, err)
	}
	if bin.Status != models.BinStatusOperational {
		return nil, &VerificationError{
			Code:    CodeBinUnavailable,
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Bin is currently %s. Please choose another bin.", bin.Status),
		}
	}

	// 4. Proximity, for QR scans only. Other methods are gated by the
	// client-side dwell confirmation or image comparison upstream.
	if req.VerificationMethod == models.VerificationQRScan {
		if !geo.IsWithinRadius(userLat, userLng,
			bin.Latitude, bin.Longitude, QRProximityRadiusMeters) {
			return nil, &VerificationError{
				Code:    CodeOutOfRange,
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf("You must be within %.0fm of the bin to drop off items.", QRProximityRadiusMeters),
			}
		}
	}

	// 5. Daily rate limit. Requires a durable transaction log; skipped in
	// degraded mode. Re-checked atomically inside CommitDropoff.
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if s.store != nil {
		count, err := s.store.CountApprovedRecycleSince(ctx, req.UserID, midnight)
		if err != nil {
			return nil, fmt.Errorf("failed to count today's drop-offs: %w", err)
		}
		if count >= MaxDropoffsPerDay {
			return nil, rateLimitedError()
		}
	}

	// 6. Per-item processing: invalid items are skipped, not fatal
	method := req.VerificationMethod
	if method == "" {
		method = models.VerificationSelfReport
	}

	var (
		transactions []models.Transaction
		totalPoints  int
		totalCO2     float64
	)

	verifiedAt := now.Unix()
	var capturedUnix *int64
	if capturedAt != nil {
		u := capturedAt.Unix()
		capturedUnix = &u
	} else {
		capturedUnix = &verifiedAt
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.ItemName) == "" || strings.TrimSpace(item.ItemType) == "" || item.Value == nil {
			log.Printf("dropoff: skipping invalid item %d in batch for user %s", i, req.UserID)
			continue
		}

		pointsEarned := int(math.Round(*item.Value * 2))

		txnID := newTransactionID()
		if i == 0 && req.TransactionID != "" {
			txnID = req.TransactionID
		}

		binID := bin.ID
		transactions = append(transactions, models.Transaction{
			TransactionID:      txnID,
			UserID:             req.UserID,
			BinID:              &binID,
			Type:               models.TransactionTypeRecycle,
			ItemName:           item.ItemName,
			ItemType:           item.ItemType,
			Confidence:         1.0, // Manual drop-off has 100% confidence
			Value:              *item.Value,
			PointsEarned:       pointsEarned,
			VerificationMethod: method,
			Status:             models.TransactionStatusApproved,
			VerifiedAt:         &verifiedAt,
			CapturedAt:         capturedUnix,
			VerifiedLatitude:   &userLat,
			VerifiedLongitude:  &userLng,
			CreatedAt:          now.Unix(),
		})
		totalPoints += pointsEarned
		totalCO2 += CO2SavedPerItemKg
	}

	// 7. The whole batch fails when nothing survived
	if len(transactions) == 0 {
		return nil, &VerificationError{
			Code:    CodeNoValidItems,
			Status:  http.StatusBadRequest,
			Message: "No valid items to recycle. Please select at least one item.",
		}
	}

	result := &Result{
		PointsEarned:  totalPoints,
		ItemsRecycled: len(transactions),
		CO2Saved:      totalCO2,
		Transactions:  transactions,
		Persisted:     s.store != nil,
	}
	for _, tx := range transactions {
		result.TransactionIDs = append(result.TransactionIDs, tx.TransactionID)
	}

	// 8+9. Persist and credit as one unit. In degraded mode the computed
	// transactions go back to the caller for client-side storage instead.
	if s.store == nil {
		log.Printf("dropoff: no store configured, returning %d unpersisted transaction(s) for user %s",
			len(transactions), req.UserID)
		return result, nil
	}

	err = s.store.CommitDropoff(ctx, Commit{
		UserID:         req.UserID,
		Transactions:   transactions,
		TotalPoints:    totalPoints,
		TotalItems:     len(transactions),
		TotalCO2:       totalCO2,
		RateLimitSince: midnight,
		MaxPerDay:      MaxDropoffsPerDay,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return nil, &VerificationError{
				Code:    CodeUserNotFound,
				Status:  http.StatusNotFound,
				Message: "User not found",
			}
		case errors.Is(err, ErrRateLimited):
			return nil, rateLimitedError()
		case errors.Is(err, ErrDuplicateTransaction):
			return nil, &VerificationError{
				Code:    CodeDuplicateTransaction,
				Status:  http.StatusConflict,
				Message: "This drop-off was already recorded.",
			}
		}
		return nil, fmt.Errorf("failed to commit drop-off: %w", err)
	}

	log.Printf("✅ Drop-off verified: user %s earned %d points for %d item(s) at bin %s",
		req.UserID, totalPoints, len(transactions), bin.ID)

	return result, nil
}

func rateLimitedError() *VerificationError {
	return &VerificationError{
		Code:   CodeRateLimited,
		Status: http.StatusTooManyRequests,
		Message: fmt.Sprintf("Daily limit reached (%d drop-offs per day). Try again tomorrow!",
			MaxDropoffsPerDay),
	}
}

// newTransactionID generates a human-legible unique transaction identifier
func newTransactionID() string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(suffix)))
}

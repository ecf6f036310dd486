package models

import "time"

// Transaction types
const (
	TransactionTypeScan    = "scan"
	TransactionTypeRecycle = "recycle"
	TransactionTypeSell    = "sell"
)

// Verification methods
const (
	VerificationQRScan     = "qr_scan"
	VerificationSelfReport = "self_report"
	VerificationAdmin      = "admin_confirm"
	VerificationAIVision   = "ai_vision_verified"
)

// Transaction statuses
const (
	TransactionStatusPending  = "pending"
	TransactionStatusApproved = "approved"
	TransactionStatusRejected = "rejected"
)

type Transaction struct {
	ID                 int64    `json:"id" db:"id"`
	TransactionID      string   `json:"transaction_id" db:"transaction_id"`
	UserID             string   `json:"user_id" db:"user_id"`
	BinID              *string  `json:"bin_id,omitempty" db:"bin_id"` // Optional for pure scans
	Type               string   `json:"type" db:"type"`
	ItemName           string   `json:"item_name" db:"item_name"`
	ItemType           string   `json:"item_type" db:"item_type"`
	Confidence         float64  `json:"confidence" db:"confidence"`
	Value              float64  `json:"value" db:"value"`
	PointsEarned       int      `json:"points_earned" db:"points_earned"`
	VerificationMethod string   `json:"verification_method" db:"verification_method"`
	Status             string   `json:"status" db:"status"`
	VerifiedAt         *int64   `json:"verified_at,omitempty" db:"verified_at"`   // Unix timestamp
	CapturedAt         *int64   `json:"captured_at,omitempty" db:"captured_at"`   // Unix timestamp
	VerifiedLatitude   *float64 `json:"verified_latitude,omitempty" db:"verified_latitude"`
	VerifiedLongitude  *float64 `json:"verified_longitude,omitempty" db:"verified_longitude"`
	CreatedAt          int64    `json:"created_at" db:"created_at"` // Unix timestamp
}

// Location is a latitude/longitude pair as sent by clients
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TransactionResponse is what we send to the client with ISO timestamps
type TransactionResponse struct {
	TransactionID        string    `json:"transactionId"`
	UserID               string    `json:"userId"`
	BinID                *string   `json:"binId,omitempty"`
	Type                 string    `json:"type"`
	ItemName             string    `json:"itemName"`
	ItemType             string    `json:"itemType"`
	Confidence           float64   `json:"confidence"`
	Value                float64   `json:"value"`
	PointsEarned         int       `json:"pointsEarned"`
	VerificationMethod   string    `json:"verificationMethod"`
	Status               string    `json:"status"`
	VerifiedAtIso        *string   `json:"verifiedAtIso,omitempty"`
	CapturedAtIso        *string   `json:"capturedAtIso,omitempty"`
	VerificationLocation *Location `json:"verificationLocation,omitempty"`
	CreatedAtIso         string    `json:"createdAtIso"`
	Persisted            bool      `json:"persisted"`
}

// ToTransactionResponse converts a Transaction to TransactionResponse.
// persisted is false in degraded mode, when the record was never written
// server-side and the client owns storage.
func (t *Transaction) ToTransactionResponse(persisted bool) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:      t.TransactionID,
		UserID:             t.UserID,
		BinID:              t.BinID,
		Type:               t.Type,
		ItemName:           t.ItemName,
		ItemType:           t.ItemType,
		Confidence:         t.Confidence,
		Value:              t.Value,
		PointsEarned:       t.PointsEarned,
		VerificationMethod: t.VerificationMethod,
		Status:             t.Status,
		CreatedAtIso:       time.Unix(t.CreatedAt, 0).Format(time.RFC3339),
		Persisted:          persisted,
	}

	if t.VerifiedAt != nil {
		iso := time.Unix(*t.VerifiedAt, 0).Format(time.RFC3339)
		resp.VerifiedAtIso = &iso
	}

	if t.CapturedAt != nil {
		iso := time.Unix(*t.CapturedAt, 0).Format(time.RFC3339)
		resp.CapturedAtIso = &iso
	}

	if t.VerifiedLatitude != nil && t.VerifiedLongitude != nil {
		resp.VerificationLocation = &Location{
			Latitude:  *t.VerifiedLatitude,
			Longitude: *t.VerifiedLongitude,
		}
	}

	return resp
}

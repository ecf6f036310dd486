package models

import "time"

// ScanLog records one classifier result for the scan stats dashboard
type ScanLog struct {
	ID         int64   `json:"id" db:"id"`
	ItemType   string  `json:"item_type" db:"item_type"`
	Category   string  `json:"category" db:"category"`
	Confidence float64 `json:"confidence" db:"confidence"`
	UserID     *string `json:"user_id,omitempty" db:"user_id"`
	DetectedAt int64   `json:"detected_at" db:"detected_at"` // Unix timestamp
}

type ScanLogResponse struct {
	ID            int64   `json:"id"`
	ItemType      string  `json:"itemType"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	UserID        *string `json:"userId,omitempty"`
	DetectedAtIso string  `json:"detectedAtIso"`
}

func (s *ScanLog) ToScanLogResponse() ScanLogResponse {
	return ScanLogResponse{
		ID:            s.ID,
		ItemType:      s.ItemType,
		Category:      s.Category,
		Confidence:    s.Confidence,
		UserID:        s.UserID,
		DetectedAtIso: time.Unix(s.DetectedAt, 0).Format(time.RFC3339),
	}
}

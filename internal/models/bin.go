package models

import (
	"time"

	"github.com/lib/pq"
)

// Bin statuses
const (
	BinStatusOperational = "operational"
	BinStatusFull        = "full"
	BinStatusMaintenance = "maintenance"
)

type Bin struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Address       string         `json:"address" db:"address"`
	City          string         `json:"city" db:"city"`
	Latitude      float64        `json:"latitude" db:"latitude"`
	Longitude     float64        `json:"longitude" db:"longitude"`
	QRCode        string         `json:"qr_code" db:"qr_code"`
	AcceptedItems pq.StringArray `json:"accepted_items" db:"accepted_items"`
	FillLevel     int            `json:"fill_level" db:"fill_level"`
	Status        string         `json:"status" db:"status"`
	CreatedAt     int64          `json:"created_at" db:"created_at"` // Unix timestamp
	UpdatedAt     int64          `json:"updated_at" db:"updated_at"` // Unix timestamp
}

// BinResponse is what we send to the client with ISO timestamps.
// DistanceMeters is only set when the caller supplied their position.
type BinResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	QRCode         string   `json:"qrCode"`
	AcceptedItems  []string `json:"acceptedItems"`
	FillLevel      int      `json:"fillLevel"`
	Status         string   `json:"status"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	CreatedAtIso   string   `json:"createdAtIso"`
	UpdatedAtIso   string   `json:"updatedAtIso"`
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	QRCode        string   `json:"qrCode"`
	AcceptedItems []string `json:"acceptedItems"`
	FillLevel     *int     `json:"fillLevel,omitempty"`
	Status        string   `json:"status"`
}

// UpdateBinRequest is the request body for PATCH /api/bins/:id
type UpdateBinRequest struct {
	Name          *string  `json:"name,omitempty"`
	Address       *string  `json:"address,omitempty"`
	City          *string  `json:"city,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	AcceptedItems []string `json:"acceptedItems,omitempty"`
	FillLevel     *int     `json:"fillLevel,omitempty"`
	Status        *string  `json:"status,omitempty"`
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	return BinResponse{
		ID:            b.ID,
		Name:          b.Name,
		Address:       b.Address,
		City:          b.City,
		Latitude:      b.Latitude,
		Longitude:     b.Longitude,
		QRCode:        b.QRCode,
		AcceptedItems: b.AcceptedItems,
		FillLevel:     b.FillLevel,
		Status:        b.Status,
		CreatedAtIso:  time.Unix(b.CreatedAt, 0).Format(time.RFC3339),
		UpdatedAtIso:  time.Unix(b.UpdatedAt, 0).Format(time.RFC3339),
	}
}

package models

import "time"

// CityRequest is a notify-me-when-you-launch-here capture from visitors in
// cities without bins yet
type CityRequest struct {
	ID          int64   `json:"id" db:"id"`
	City        string  `json:"city" db:"city"`
	Email       *string `json:"email,omitempty" db:"email"`
	IP          string  `json:"ip" db:"ip"`
	UserAgent   string  `json:"user_agent" db:"user_agent"`
	RequestedAt int64   `json:"requested_at" db:"requested_at"` // Unix timestamp
}

type CityRequestResponse struct {
	ID             int64   `json:"id"`
	City           string  `json:"city"`
	Email          *string `json:"email,omitempty"`
	RequestedAtIso string  `json:"requestedAtIso"`
}

func (c *CityRequest) ToCityRequestResponse() CityRequestResponse {
	return CityRequestResponse{
		ID:             c.ID,
		City:           c.City,
		Email:          c.Email,
		RequestedAtIso: time.Unix(c.RequestedAt, 0).Format(time.RFC3339),
	}
}

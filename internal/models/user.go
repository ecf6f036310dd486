package models

import "time"

type User struct {
	ID                 string  `json:"id" db:"id"`
	Email              string  `json:"email" db:"email"`
	Username           string  `json:"username" db:"username"`
	Name               string  `json:"name" db:"name"`
	Password           string  `json:"-" db:"password"`
	Role               string  `json:"role" db:"role"` // 'user' or 'admin'
	Points             int     `json:"points" db:"points"`
	TotalItemsRecycled int     `json:"total_items_recycled" db:"total_items_recycled"`
	TotalCO2Saved      float64 `json:"total_co2_saved" db:"total_co2_saved"`
	IsActive           bool    `json:"is_active" db:"is_active"`
	CreatedAt          int64   `json:"created_at" db:"created_at"` // Unix timestamp
	UpdatedAt          int64   `json:"updated_at" db:"updated_at"` // Unix timestamp
}

// UserResponse is what we send to the client with ISO timestamps
type UserResponse struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	Username           string  `json:"username"`
	Name               string  `json:"name"`
	Role               string  `json:"role"`
	Points             int     `json:"points"`
	TotalItemsRecycled int     `json:"totalItemsRecycled"`
	TotalCO2Saved      float64 `json:"totalCO2Saved"`
	IsActive           bool    `json:"isActive"`
	CreatedAtIso       string  `json:"createdAtIso"`
	UpdatedAtIso       string  `json:"updatedAtIso"`
}

// SignupRequest is the request body for POST /api/auth/signup
type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUserResponse converts a User to UserResponse
func (u *User) ToUserResponse() UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		Name:               u.Name,
		Role:               u.Role,
		Points:             u.Points,
		TotalItemsRecycled: u.TotalItemsRecycled,
		TotalCO2Saved:      u.TotalCO2Saved,
		IsActive:           u.IsActive,
		CreatedAtIso:       time.Unix(u.CreatedAt, 0).Format(time.RFC3339),
		UpdatedAtIso:       time.Unix(u.UpdatedAt, 0).Format(time.RFC3339),
	}
}

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"ecodrop-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

type cityRequestBody struct {
	City  string `json:"city"`
	Email string `json:"email"`
}

type cityRequestEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// requestIP prefers proxy headers so the captured address survives a
// load balancer in front of the server
func requestIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// CreateCityRequest captures a "notify me when EcoDrop reaches my city"
// submission. Public, no auth.
func CreateCityRequest(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cityRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(cityRequestEnvelope{Success: false, Error: "Invalid request body"})
			return
		}

		city := strings.TrimSpace(body.City)
		if city == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(cityRequestEnvelope{Success: false, Error: "City is required"})
			return
		}

		var email *string
		if trimmed := strings.TrimSpace(body.Email); trimmed != "" {
			email = &trimmed
		}

		userAgent := r.Header.Get("User-Agent")
		if userAgent == "" {
			userAgent = "unknown"
		}

		req := models.CityRequest{
			City:        city,
			Email:       email,
			IP:          requestIP(r),
			UserAgent:   userAgent,
			RequestedAt: time.Now().Unix(),
		}

		err := db.Get(&req.ID, `
			INSERT INTO city_requests (city, email, ip, user_agent, requested_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, req.City, req.Email, req.IP, req.UserAgent, req.RequestedAt)
		if err != nil {
			log.Printf("❌ Failed to save city request: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(cityRequestEnvelope{Success: false, Error: "Failed to save notification request"})
			return
		}

		log.Printf("📍 City request saved: %s", req.City)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cityRequestEnvelope{
			Success: true,
			Message: "Notification request saved successfully",
			Data:    req.ToCityRequestResponse(),
		})
	}
}

// GetCityRequests lists captured requests, newest first, optionally
// filtered by ?city=. Admin only.
func GetCityRequests(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := strings.TrimSpace(r.URL.Query().Get("city"))

		var requests []models.CityRequest
		var err error
		if city != "" {
			err = db.Select(&requests, `
				SELECT id, city, email, ip, user_agent, requested_at
				FROM city_requests
				WHERE city = $1
				ORDER BY requested_at DESC
				LIMIT 100
			`, city)
		} else {
			err = db.Select(&requests, `
				SELECT id, city, email, ip, user_agent, requested_at
				FROM city_requests
				ORDER BY requested_at DESC
				LIMIT 1000
			`)
		}
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(cityRequestEnvelope{Success: false, Error: "Failed to fetch city requests"})
			return
		}

		responses := make([]models.CityRequestResponse, len(requests))
		for i := range requests {
			responses[i] = requests[i].ToCityRequestResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cityRequestEnvelope{Success: true, Data: responses})
	}
}

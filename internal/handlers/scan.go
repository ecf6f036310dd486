package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/services"

	"github.com/jmoiron/sqlx"
)

type scanRequest struct {
	Image string `json:"image"`
}

type scanEnvelope struct {
	Success bool                 `json:"success"`
	Result  *services.ScanResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// AnalyzeScan runs an image through the classifier and logs the result for
// the scan stats dashboard. The log write is best-effort; a classifier
// result is still returned when it fails.
func AnalyzeScan(classifier *services.ClassifierService, db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Image == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(scanEnvelope{Success: false, Error: "No image provided"})
			return
		}

		result, err := classifier.Analyze(r.Context(), req.Image)
		if err != nil {
			log.Printf("❌ Scan analysis failed: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(scanEnvelope{Success: false, Error: "Analysis failed"})
			return
		}

		if db != nil {
			var userID *string
			if claims, ok := middleware.GetUserFromContext(r); ok {
				userID = &claims.UserID
			}

			_, err := db.Exec(`
				INSERT INTO scan_logs (item_type, category, confidence, user_id, detected_at)
				VALUES ($1, $2, $3, $4, $5)
			`, result.Type, result.Category, result.Confidence, userID, time.Now().Unix())
			if err != nil {
				log.Printf("⚠️ Failed to write scan log: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scanEnvelope{Success: true, Result: result})
	}
}

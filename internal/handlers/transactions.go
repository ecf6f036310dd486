package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetTransactions lists the authenticated user's transactions, newest
// first. Admins can pass ?userId= to inspect another user's history.
func GetTransactions(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userID := claims.UserID
		if requested := r.URL.Query().Get("userId"); requested != "" && requested != claims.UserID {
			if claims.Role != "admin" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			userID = requested
		}

		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
				limit = parsed
			}
		}

		var transactions []models.Transaction
		err := db.Select(&transactions, `
			SELECT id, transaction_id, user_id, bin_id, type, item_name, item_type,
			       confidence, value, points_earned, verification_method, status,
			       verified_at, captured_at, verified_latitude, verified_longitude, created_at
			FROM transactions
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, userID, limit)
		if err != nil {
			http.Error(w, "Failed to fetch transactions", http.StatusInternalServerError)
			return
		}

		responses := make([]models.TransactionResponse, len(transactions))
		for i, tx := range transactions {
			responses[i] = tx.ToTransactionResponse(true)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responses)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ecodrop-backend/internal/dropoff"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/models"
)

type dropoffData struct {
	PointsEarned   int                          `json:"pointsEarned"`
	ItemsRecycled  int                          `json:"itemsRecycled"`
	CO2Saved       float64                      `json:"co2Saved"`
	TransactionIDs []string                     `json:"transactionIds"`
	Transactions   []models.TransactionResponse `json:"transactions"`
	Persisted      bool                         `json:"persisted"`
}

type dropoffEnvelope struct {
	Success bool         `json:"success"`
	Data    *dropoffData `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Code    string       `json:"code,omitempty"`
}

// VerifyDropoff is the server-side gate for completed drop-offs. The
// client's dwell confirmation only unlocks the submit button; everything
// is re-validated here.
func VerifyDropoff(svc *dropoff.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dropoff.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDropoffError(w, &dropoff.VerificationError{
				Code:    dropoff.CodeInvalidRequest,
				Status:  http.StatusBadRequest,
				Message: "Invalid request body",
			})
			return
		}

		// The authenticated user is authoritative; the body's userId is
		// only a cross-check
		if claims, ok := middleware.GetUserFromContext(r); ok {
			if req.UserID == "" {
				req.UserID = claims.UserID
			} else if req.UserID != claims.UserID && claims.Role != "admin" {
				writeDropoffError(w, &dropoff.VerificationError{
					Code:    dropoff.CodeInvalidRequest,
					Status:  http.StatusForbidden,
					Message: "Cannot submit a drop-off for another user",
				})
				return
			}
		}

		result, err := svc.Verify(r.Context(), &req)
		if err != nil {
			var ve *dropoff.VerificationError
			if errors.As(err, &ve) {
				writeDropoffError(w, ve)
				return
			}
			log.Printf("❌ Drop-off verification failed: %v", err)
			writeDropoffError(w, &dropoff.VerificationError{
				Code:    dropoff.CodeInternal,
				Status:  http.StatusInternalServerError,
				Message: "Something went wrong. Please try again.",
			})
			return
		}

		data := &dropoffData{
			PointsEarned:   result.PointsEarned,
			ItemsRecycled:  result.ItemsRecycled,
			CO2Saved:       result.CO2Saved,
			TransactionIDs: result.TransactionIDs,
			Persisted:      result.Persisted,
		}
		for _, tx := range result.Transactions {
			data.Transactions = append(data.Transactions, tx.ToTransactionResponse(result.Persisted))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dropoffEnvelope{Success: true, Data: data})
	}
}

func writeDropoffError(w http.ResponseWriter, ve *dropoff.VerificationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ve.Status)
	json.NewEncoder(w).Encode(dropoffEnvelope{
		Success: false,
		Error:   ve.Message,
		Code:    ve.Code,
	})
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ecodrop-backend/internal/dropoff"
	"ecodrop-backend/internal/geo"
	"ecodrop-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// annotateDistances fills DistanceMeters on each response when the caller
// supplied their position, and sorts nearest-first
func annotateDistances(responses []models.BinResponse, r *http.Request) []models.BinResponse {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		return responses
	}

	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		return responses
	}

	for i := range responses {
		d := geo.DistanceMeters(lat, lng, responses[i].Latitude, responses[i].Longitude)
		responses[i].DistanceMeters = &d
	}
	sort.Slice(responses, func(i, j int) bool {
		return *responses[i].DistanceMeters < *responses[j].DistanceMeters
	})
	return responses
}

func GetBins(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var bins []models.Bin
		err := db.Select(&bins, `
			SELECT id, name, address, city, latitude, longitude, qr_code,
			       accepted_items, fill_level, status, created_at, updated_at
			FROM bins
			ORDER BY id ASC
		`)
		if err != nil {
			http.Error(w, "Failed to fetch bins", http.StatusInternalServerError)
			return
		}

		responses := make([]models.BinResponse, len(bins))
		for i, bin := range bins {
			responses[i] = bin.ToBinResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(annotateDistances(responses, r))
	}
}

// GetStaticBins serves the built-in bin set when no database is configured
func GetStaticBins(bins *dropoff.MemoryBins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := bins.All()
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

		responses := make([]models.BinResponse, len(all))
		for i, bin := range all {
			responses[i] = bin.ToBinResponse()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(annotateDistances(responses, r))
	}
}

func GetBin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var bin models.Bin
		err := db.Get(&bin, "SELECT * FROM bins WHERE id = $1", id)
		if err == sql.ErrNoRows {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bin.ToBinResponse())
	}
}

func CreateBin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" || req.Address == "" || req.Latitude == nil || req.Longitude == nil {
			http.Error(w, "name, address, latitude and longitude are required", http.StatusBadRequest)
			return
		}

		status := req.Status
		if status == "" {
			status = models.BinStatusOperational
		}
		fillLevel := 0
		if req.FillLevel != nil {
			fillLevel = *req.FillLevel
		}

		bin := models.Bin{
			ID:            "bin-" + uuid.New().String()[:8],
			Name:          req.Name,
			Address:       req.Address,
			City:          req.City,
			Latitude:      *req.Latitude,
			Longitude:     *req.Longitude,
			QRCode:        req.QRCode,
			AcceptedItems: pq.StringArray(req.AcceptedItems),
			FillLevel:     fillLevel,
			Status:        status,
			CreatedAt:     time.Now().Unix(),
			UpdatedAt:     time.Now().Unix(),
		}

		_, err := db.Exec(`
			INSERT INTO bins (id, name, address, city, latitude, longitude, qr_code, accepted_items, fill_level, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, bin.ID, bin.Name, bin.Address, bin.City, bin.Latitude, bin.Longitude,
			bin.QRCode, bin.AcceptedItems, bin.FillLevel, bin.Status, bin.CreatedAt, bin.UpdatedAt)
		if err != nil {
			log.Printf("❌ Failed to create bin: %v", err)
			http.Error(w, "Failed to create bin", http.StatusInternalServerError)
			return
		}

		log.Printf("✅ Bin created: %s (%s)", bin.ID, bin.Name)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(bin.ToBinResponse())
	}
}

func UpdateBin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req models.UpdateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var existing models.Bin
		err := db.Get(&existing, "SELECT * FROM bins WHERE id = $1", id)
		if err == sql.ErrNoRows {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.Address != nil {
			existing.Address = *req.Address
		}
		if req.City != nil {
			existing.City = *req.City
		}
		if req.Latitude != nil {
			existing.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			existing.Longitude = *req.Longitude
		}
		if req.AcceptedItems != nil {
			existing.AcceptedItems = pq.StringArray(req.AcceptedItems)
		}
		if req.FillLevel != nil {
			val := *req.FillLevel
			if val < 0 {
				val = 0
			}
			if val > 100 {
				val = 100
			}
			existing.FillLevel = val
		}
		if req.Status != nil {
			switch *req.Status {
			case models.BinStatusOperational, models.BinStatusFull, models.BinStatusMaintenance:
				existing.Status = *req.Status
			default:
				http.Error(w, "Invalid status", http.StatusBadRequest)
				return
			}
		}
		existing.UpdatedAt = time.Now().Unix()

		_, err = db.Exec(`
			UPDATE bins
			SET name = $1, address = $2, city = $3, latitude = $4, longitude = $5,
			    accepted_items = $6, fill_level = $7, status = $8, updated_at = $9
			WHERE id = $10
		`, existing.Name, existing.Address, existing.City, existing.Latitude, existing.Longitude,
			existing.AcceptedItems, existing.FillLevel, existing.Status, existing.UpdatedAt, id)
		if err != nil {
			http.Error(w, "Failed to update bin", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(existing.ToBinResponse())
	}
}

func DeleteBin(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		res, err := db.Exec("DELETE FROM bins WHERE id = $1", id)
		if err != nil {
			http.Error(w, "Failed to delete bin", http.StatusInternalServerError)
			return
		}
		rows, err := res.RowsAffected()
		if err == nil && rows == 0 {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		log.Printf("🗑️ Bin deleted: %s", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

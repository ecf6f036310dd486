package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
)

type analyticsSummary struct {
	TotalUsers         int     `json:"totalUsers"`
	TotalBins          int     `json:"totalBins"`
	OperationalBins    int     `json:"operationalBins"`
	TotalTransactions  int     `json:"totalTransactions"`
	DropoffsToday      int     `json:"dropoffsToday"`
	TotalPointsAwarded int     `json:"totalPointsAwarded"`
	TotalItemsRecycled int     `json:"totalItemsRecycled"`
	TotalCO2SavedKg    float64 `json:"totalCO2SavedKg"`
	ScansLast7Days     int     `json:"scansLast7Days"`
}

// GetAnalytics returns the admin dashboard summary
func GetAnalytics(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		weekAgo := now.Add(-7 * 24 * time.Hour)

		var summary analyticsSummary
		queries := []struct {
			dest  interface{}
			query string
			args  []interface{}
		}{
			{&summary.TotalUsers, "SELECT COUNT(*) FROM users", nil},
			{&summary.TotalBins, "SELECT COUNT(*) FROM bins", nil},
			{&summary.OperationalBins, "SELECT COUNT(*) FROM bins WHERE status = 'operational'", nil},
			{&summary.TotalTransactions, "SELECT COUNT(*) FROM transactions", nil},
			{&summary.DropoffsToday,
				"SELECT COUNT(*) FROM transactions WHERE type = 'recycle' AND status = 'approved' AND created_at >= $1",
				[]interface{}{midnight.Unix()}},
			{&summary.TotalPointsAwarded, "SELECT COALESCE(SUM(points_earned), 0) FROM transactions WHERE status = 'approved'", nil},
			{&summary.TotalItemsRecycled, "SELECT COALESCE(SUM(total_items_recycled), 0) FROM users", nil},
			{&summary.TotalCO2SavedKg, "SELECT COALESCE(SUM(total_co2_saved), 0) FROM users", nil},
			{&summary.ScansLast7Days,
				"SELECT COUNT(*) FROM scan_logs WHERE detected_at >= $1",
				[]interface{}{weekAgo.Unix()}},
		}

		for _, q := range queries {
			if err := db.Get(q.dest, q.query, q.args...); err != nil {
				http.Error(w, "Failed to compute analytics", http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func postCityRequest(t *testing.T, db *sqlx.DB, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/city-requests", strings.NewReader(body))
	req.Header.Set("User-Agent", "ecodrop-test")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	CreateCityRequest(db)(rec, req)
	return rec
}

func TestCreateCityRequestSaves(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO city_requests").
		WithArgs("Lucknow", "someone@example.com", "203.0.113.9", "ecodrop-test", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	rec := postCityRequest(t, db, `{"city": "  Lucknow  ", "email": " someone@example.com "}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			ID    int64   `json:"id"`
			City  string  `json:"city"`
			Email *string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !envelope.Success {
		t.Error("expected success: true")
	}
	if envelope.Message != "Notification request saved successfully" {
		t.Errorf("message = %q", envelope.Message)
	}
	if envelope.Data.ID != 7 {
		t.Errorf("id = %d, want 7", envelope.Data.ID)
	}
	if envelope.Data.City != "Lucknow" {
		t.Errorf("city = %q, want trimmed %q", envelope.Data.City, "Lucknow")
	}
	if envelope.Data.Email == nil || *envelope.Data.Email != "someone@example.com" {
		t.Errorf("email = %v, want trimmed someone@example.com", envelope.Data.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateCityRequestRequiresCity(t *testing.T) {
	db, mock := newMockDB(t)

	for _, body := range []string{`{}`, `{"city": "   "}`, `{"email": "a@b.c"}`} {
		rec := postCityRequest(t, db, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		var envelope struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("body %s: failed to decode response: %v", body, err)
		}
		if envelope.Success || envelope.Error != "City is required" {
			t.Errorf("body %s: envelope = %+v", body, envelope)
		}
	}

	// Nothing reached the database
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateCityRequestOmitsEmptyEmail(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO city_requests").
		WithArgs("Kanpur", nil, "203.0.113.9", "ecodrop-test", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	rec := postCityRequest(t, db, `{"city": "Kanpur", "email": ""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetCityRequestsFiltersByCity(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "city", "email", "ip", "user_agent", "requested_at"}).
		AddRow(int64(2), "Lucknow", nil, "203.0.113.9", "ecodrop-test", int64(1700000100)).
		AddRow(int64(1), "Lucknow", "a@b.c", "203.0.113.9", "ecodrop-test", int64(1700000000))
	mock.ExpectQuery("SELECT id, city, email, ip, user_agent, requested_at\\s+FROM city_requests\\s+WHERE city =").
		WithArgs("Lucknow").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/city-requests?city=Lucknow", nil)
	rec := httptest.NewRecorder()
	GetCityRequests(db)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    []struct {
			ID   int64  `json:"id"`
			City string `json:"city"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !envelope.Success || len(envelope.Data) != 2 {
		t.Fatalf("envelope = %+v, want 2 rows", envelope)
	}
	if envelope.Data[0].ID != 2 {
		t.Errorf("first row id = %d, want newest first", envelope.Data[0].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

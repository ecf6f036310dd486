package database

import (
	"log"

	"ecodrop-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBins is the Prayagraj pilot bin set. It doubles as the seed data
// and as the in-memory bin source when no database is configured.
func DefaultBins() []models.Bin {
	return []models.Bin{
		{
			ID:            "bin-002",
			Name:          "Civil Lines E-Bin",
			Address:       "Civil Lines, Near Hanuman Mandir, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.4534,
			Longitude:     81.8340,
			QRCode:        "BIN-PRJ-002",
			AcceptedItems: pq.StringArray{"smartphone", "laptop", "battery"},
			FillLevel:     45,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-003",
			Name:          "Teliyarganj E-Bin",
			Address:       "Teliyarganj, Near MNNIT, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.4624,
			Longitude:     81.8605,
			QRCode:        "BIN-PRJ-003",
			AcceptedItems: pq.StringArray{"smartphone", "cable", "battery", "e-waste"},
			FillLevel:     20,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-004",
			Name:          "Radhe Motor E-Waste Bin",
			Address:       "Motor, Near SantiPuram, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.5283335,
			Longitude:     81.8478447,
			QRCode:        "BIN-PRJ-004",
			AcceptedItems: pq.StringArray{"all"},
			FillLevel:     50,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-005",
			Name:          "Santipuram E-Waste Bin",
			Address:       "Santipuram, Near Bus Stop, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.525979,
			Longitude:     81.8426996,
			QRCode:        "BIN-PRJ-005",
			AcceptedItems: pq.StringArray{"mobile", "accessories", "battery"},
			FillLevel:     75,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-006",
			Name:          "Phaphamau Bridge E-Bin",
			Address:       "Phaphamau Main Market, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.4988,
			Longitude:     81.8596,
			QRCode:        "BIN-PRJ-006",
			AcceptedItems: pq.StringArray{"battery", "smartphone"},
			FillLevel:     80,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-007",
			Name:          "Jhunsi E-Bin",
			Address:       "Jhunsi, Near Sangam, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.4180,
			Longitude:     81.8700,
			QRCode:        "BIN-PRJ-007",
			AcceptedItems: pq.StringArray{"heavy-electronics", "large-appliances"},
			FillLevel:     15,
			Status:        models.BinStatusOperational,
		},
		{
			ID:            "bin-008",
			Name:          "Bamrauli Airport E-Bin",
			Address:       "Near Airport Road, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.4399,
			Longitude:     81.7360,
			QRCode:        "BIN-PRJ-008",
			AcceptedItems: pq.StringArray{"all"},
			FillLevel:     90,
			Status:        models.BinStatusFull,
		},
		{
			ID:            "bin-009",
			Name:          "Naini Industrial Area E-Bin",
			Address:       "Naini Industrial Area, Prayagraj",
			City:          "Prayagraj",
			Latitude:      25.3820,
			Longitude:     81.8850,
			QRCode:        "BIN-PRJ-009",
			AcceptedItems: pq.StringArray{"laptop", "smartphone", "tablet"},
			FillLevel:     30,
			Status:        models.BinStatusOperational,
		},
	}
}

func SeedBins(db *sqlx.DB) error {
	// Check if bins already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	bins := DefaultBins()
	log.Printf("🌱 Seeding %d bins...", len(bins))

	for _, bin := range bins {
		_, err := db.Exec(`
			INSERT INTO bins (id, name, address, city, latitude, longitude, qr_code, accepted_items, fill_level, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, bin.ID, bin.Name, bin.Address, bin.City, bin.Latitude, bin.Longitude,
			bin.QRCode, bin.AcceptedItems, bin.FillLevel, bin.Status)

		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(bins))
	return nil
}

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	// Hash passwords
	userPassword, err := bcrypt.GenerateFromPassword([]byte("user123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":       uuid.New().String(),
			"email":    "user@ecodrop.in",
			"username": "demo",
			"password": string(userPassword),
			"name":     "Demo User",
			"role":     "user",
		},
		{
			"id":       uuid.New().String(),
			"email":    "admin@ecodrop.in",
			"username": "admin",
			"password": string(adminPassword),
			"name":     "Admin User",
			"role":     "admin",
		},
	}

	for _, user := range users {
		_, err := db.Exec(`
			INSERT INTO users (id, email, username, password, name, role)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user["id"], user["email"], user["username"], user["password"], user["name"], user["role"])

		if err != nil {
			return err
		}
	}

	log.Println("✓ Successfully seeded test users")
	return nil
}

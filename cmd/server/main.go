package main

import (
	"log"
	"net/http"
	"os"

	"ecodrop-backend/internal/database"
	"ecodrop-backend/internal/dropoff"
	"ecodrop-backend/internal/handlers"
	"ecodrop-backend/internal/middleware"
	"ecodrop-backend/internal/services"
	"ecodrop-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 ECODROP BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// The server runs with or without a database. Without one, bins come
	// from the built-in set, verified drop-offs are returned unpersisted,
	// and auth/transactions/admin endpoints are unavailable.
	var db *sqlx.DB
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Println("⚠️  DATABASE_URL not set, running in degraded mode (in-memory bins, no persistence)")
	} else {
		var err error
		db, err = database.Connect(dbURL)
		if err != nil {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("❌ FATAL ERROR: Database connection failed")
			log.Printf("   Error: %v", err)
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Fatal(err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Println("❌ FATAL ERROR: Database migrations failed")
			log.Fatal(err)
		}
		if err := database.SeedUsers(db); err != nil {
			log.Println("❌ FATAL ERROR: User seeding failed")
			log.Fatal(err)
		}
		if err := database.SeedBins(db); err != nil {
			log.Println("❌ FATAL ERROR: Bin seeding failed")
			log.Fatal(err)
		}
	}

	// Wire the drop-off verification service against the database, or the
	// static bin set when none is configured
	var dropoffSvc *dropoff.Service
	var bins dropoff.BinSource
	memoryBins := dropoff.NewMemoryBins(database.DefaultBins())
	if db != nil {
		store := database.NewDropoffStore(db)
		bins = store
		dropoffSvc = dropoff.NewService(store, store)
	} else {
		bins = memoryBins
		dropoffSvc = dropoff.NewService(memoryBins, nil)
	}

	// Image classifier for the scan flow; optional
	classifier, err := services.NewClassifierService()
	if err != nil {
		log.Printf("⚠️  Classifier unavailable: %v (scan endpoint disabled)", err)
		classifier = nil
	} else {
		log.Println("✅ Classifier service initialized")
	}

	// WebSocket hub carries position fixes into per-user dwell tracking
	wsHub := websocket.NewHub(bins)
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint (token accepted via ?token= query parameter)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth)
		r.Get("/ws", websocket.HandleWebSocket(wsHub))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Bin listing is public; degraded mode serves the built-in set
		if db != nil {
			r.Get("/bins", handlers.GetBins(db))
			r.Get("/bins/{id}", handlers.GetBin(db))
		} else {
			r.Get("/bins", handlers.GetStaticBins(memoryBins))
		}

		if classifier != nil {
			r.Post("/scan/analyze", handlers.AnalyzeScan(classifier, db))
		}

		if db == nil {
			// Degraded mode: drop-off verification stays available without
			// auth, mirroring the client-storage deployment
			r.Post("/dropoff/verify", handlers.VerifyDropoff(dropoffSvc))
			return
		}

		// Authentication routes (no auth required)
		r.Post("/auth/signup", handlers.Signup(db))
		r.Post("/auth/login", handlers.Login(db))

		// Launch-city interest capture from the landing page
		r.Post("/city-requests", handlers.CreateCityRequest(db))

		// Authenticated user endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/me", handlers.Me(db))
			r.Post("/dropoff/verify", handlers.VerifyDropoff(dropoffSvc))
			r.Get("/transactions", handlers.GetTransactions(db))
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			r.Post("/bins", handlers.CreateBin(db))
			r.Patch("/bins/{id}", handlers.UpdateBin(db))
			r.Delete("/bins/{id}", handlers.DeleteBin(db))
			r.Get("/admin/analytics", handlers.GetAnalytics(db))
			r.Get("/city-requests", handlers.GetCityRequests(db))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Fatal(err)
	}
}

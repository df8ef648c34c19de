// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberdating/ember-backend/internal/auth"
	"github.com/emberdating/ember-backend/internal/block"
	"github.com/emberdating/ember-backend/internal/chat"
	"github.com/emberdating/ember-backend/internal/common/database"
	"github.com/emberdating/ember-backend/internal/common/utils"
	"github.com/emberdating/ember-backend/internal/config"
	"github.com/emberdating/ember-backend/internal/discovery"
	"github.com/emberdating/ember-backend/internal/profile"
	"github.com/emberdating/ember-backend/internal/verification"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Ember Dating API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and validated")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), block cache disabled", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, block cache disabled")
	}

	// 5. Run migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Migration failed:", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Wire up modules
	log.Println("\n🧩 Step 6: Initializing modules...")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	profileStore := profile.NewPostgresStore(db)

	var blockStore block.Store = block.NewPostgresStore(db)
	if redisClient != nil {
		blockStore = block.NewCachedStore(blockStore, redisClient, cfg.BlockCacheTTL)
		log.Println("   ✅ Block cache enabled")
	}

	chatRepo := chat.NewPostgresRepository(db)
	chatService := chat.NewService(chatRepo)
	chatHandler := chat.NewHandler(chatService)

	ledger := discovery.NewPostgresLedger(db, chatRepo)

	var hub *discovery.Hub
	var notifier discovery.MatchNotifier
	if cfg.EnableMatchEvents {
		hub = discovery.NewHub()
		notifier = hub
		log.Println("   ✅ Match event hub enabled")
	}

	discoveryService := discovery.NewService(ledger, profileStore, blockStore, notifier, discovery.Options{
		FeedPageSize:      cfg.FeedPageSize,
		CandidatePoolSize: cfg.CandidatePoolSize,
		LikerPageSize:     cfg.LikerPageSize,
		MaxRetries:        cfg.ReconcileMaxRetries,
		RetryBackoff:      cfg.ReconcileBackoff,
		DefaultRadiusKM:   cfg.DefaultRadiusKM,
	})
	discoveryHandler := discovery.NewHandler(discoveryService, hub)

	log.Println("✅ Core modules initialized")

	// 7. Verification sidecar (optional)
	log.Println("\n🪪 Step 7: Initializing verification...")
	var verificationHandler *verification.Handler
	if cfg.EnableVerification && cfg.VerificationURL != "" {
		client := verification.NewClient(cfg.VerificationURL, cfg.VerificationTimeout)
		if _, err := client.Health(context.Background()); err != nil {
			log.Printf("   ⚠️  Verification sidecar unreachable (%v), continuing anyway", err)
		} else {
			log.Println("   ✅ Verification sidecar healthy")
		}
		verificationHandler = verification.NewHandler(verification.NewService(client, profileStore))
	} else {
		log.Println("   ⚠️  Verification disabled")
	}

	// 8. Routes
	log.Println("\n🛣️  Step 8: Registering routes...")
	router := mux.NewRouter()
	router.Use(auth.RequestID)

	router.HandleFunc("/health", healthCheck(db)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	discovery.RegisterRoutes(router, discoveryHandler, authMiddleware)
	chat.RegisterRoutes(router, chatHandler, authMiddleware)
	if verificationHandler != nil {
		verification.RegisterRoutes(router, verificationHandler, authMiddleware)
	}
	log.Println("✅ Routes registered")

	// 9. Start server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("\n🌐 Server listening on port %s (%s)\n", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited cleanly")
}

func healthCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		utils.RespondWithMessage(w, http.StatusOK, "ok")
	}
}

// runMigrations creates the schema if it does not exist yet
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id SERIAL PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			display_name VARCHAR(255),
			bio TEXT,
			birth_date DATE,
			gender VARCHAR(50),
			height_cm INTEGER,
			interests TEXT[] DEFAULT '{}',
			relationship_intent VARCHAR(50),
			gender_preference TEXT[] DEFAULT '{}',
			match_radius_km DOUBLE PRECISION,
			location_lat DOUBLE PRECISION,
			location_lng DOUBLE PRECISION,
			is_verified BOOLEAN DEFAULT FALSE,
			trust_score DOUBLE PRECISION DEFAULT 0,
			face_template TEXT,
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS swipes (
			id SERIAL PRIMARY KEY,
			from_user_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			to_user_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			action VARCHAR(10) NOT NULL,
			acted_on_by_target BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT swipes_pair_unique UNIQUE (from_user_id, to_user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS chat_channels (
			id SERIAL PRIMARY KEY,
			user1_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			user2_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			is_mutual BOOLEAN DEFAULT FALSE,
			related_match_id INTEGER,
			last_message TEXT,
			last_message_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chat_channels_pair_unique UNIQUE (user1_id, user2_id),
			CONSTRAINT chat_channels_pair_order CHECK (user1_id < user2_id)
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			user1_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			user2_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			chat_channel_id INTEGER NOT NULL REFERENCES chat_channels(id),
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT matches_pair_unique UNIQUE (user1_id, user2_id),
			CONSTRAINT matches_pair_order CHECK (user1_id < user2_id)
		)`,

		`CREATE TABLE IF NOT EXISTS blocks (
			id SERIAL PRIMARY KEY,
			blocker_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			blocked_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT blocks_pair_unique UNIQUE (blocker_id, blocked_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_swipes_to_user ON swipes(to_user_id, action, acted_on_by_target)`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_from_user ON swipes(from_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_last_active ON profiles(last_active)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

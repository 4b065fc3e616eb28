package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roofRewardsAPI/handlers"
	"roofRewardsAPI/internal/bus"
	"roofRewardsAPI/internal/notification"
	"roofRewardsAPI/internal/storage"
	"roofRewardsAPI/middleware"
	"roofRewardsAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	sqliteStore         *storage.SQLiteKV
	store               storage.KV
	storeLister         storage.Lister
	eventBus            *bus.Bus
	rewardsService      *services.RewardsService
	questService        *services.QuestService
	walletService       *services.WalletService
	notificationService *services.NotificationService
	accountService      *services.AccountService
	dispatcher          *services.NotificationDispatcher
	maintenanceService  *services.MaintenanceService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		poolConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatal("Failed to parse database URL:", err)
		}

		poolConfig.MaxConns = 25
		poolConfig.MinConns = 5
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute
		poolConfig.HealthCheckPeriod = time.Minute

		dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			log.Fatal("Failed to create connection pool:", err)
		}

		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		pg := storage.NewPostgresKV(dbPool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to ensure database schema:", err)
		}
		store = pg
		storeLister = pg
		log.Println("Successfully connected to Postgres")
	} else {
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "./roofrewards.db"
		}
		var err error
		sqliteStore, err = storage.OpenSQLiteKV(path)
		if err != nil {
			log.Fatal("Failed to open sqlite store:", err)
		}
		store = sqliteStore
		storeLister = sqliteStore
		log.Printf("Using sqlite store at %s", path)
	}

	eventBus = bus.New()
	locks := services.NewAccountLocks()

	billing, err := services.NewStripeBilling()
	if err != nil {
		log.Fatal("Failed to initialize Stripe billing:", err)
	}

	rewardsService = services.NewRewardsService(store, eventBus, locks)
	questService = services.NewQuestService(store, eventBus, locks, rewardsService)
	walletService = services.NewWalletService(store, eventBus, locks, rewardsService, billing)
	notificationService = services.NewNotificationService(store, locks)
	accountService = services.NewAccountService(store, locks)
	dispatcher = services.NewNotificationDispatcher(notificationService, eventBus)
	maintenanceService = services.NewMaintenanceService(storeLister, rewardsService, questService, notificationService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		dispatcher.Stop()
		maintenanceService.Stop()
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
		if sqliteStore != nil {
			sqliteStore.Close()
		}
	}()

	if err := maintenanceService.Start(); err != nil {
		log.Fatal("Failed to start maintenance jobs:", err)
	}

	rewardsHandler := handlers.NewRewardsHandler(rewardsService)
	questsHandler := handlers.NewQuestsHandler(questService)
	walletHandler := handlers.NewWalletHandler(walletService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(accountService, walletService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if dbPool != nil {
			if err := dbPool.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "roofRewards-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")
	r.HandleFunc("/webhooks/stripe", webhookHandler.HandleStripeWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER (REQUIRES AUTH HEADER)
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.ClerkAuthMiddleware)

	api.HandleFunc("/rewards", rewardsHandler.GetRewards).Methods("GET")
	api.HandleFunc("/rewards/award", rewardsHandler.Award).Methods("POST")
	api.HandleFunc("/rewards/redeem", rewardsHandler.Redeem).Methods("POST")
	api.HandleFunc("/rewards/check-in", rewardsHandler.CheckIn).Methods("POST")

	api.HandleFunc("/quests/today", questsHandler.GetToday).Methods("GET")
	api.HandleFunc("/quests/{taskID}/complete", questsHandler.Complete).Methods("POST")
	api.HandleFunc("/quests/refresh", questsHandler.Refresh).Methods("POST")

	api.HandleFunc("/wallet", walletHandler.GetWallet).Methods("GET")
	api.HandleFunc("/wallet/allocate", walletHandler.Allocate).Methods("POST")
	api.HandleFunc("/wallet/exchange", walletHandler.Exchange).Methods("POST")
	api.HandleFunc("/wallet/spend", walletHandler.Spend).Methods("POST")
	api.HandleFunc("/wallet/auto-spend", walletHandler.SetAutoSpend).Methods("PUT")
	api.HandleFunc("/wallet/top-up", walletHandler.TopUp).Methods("POST")

	api.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	api.HandleFunc("/notifications/read-all", notificationHandler.MarkAllRead).Methods("PUT")
	api.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

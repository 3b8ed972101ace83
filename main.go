package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"collabmatch/backend/config"
	"collabmatch/backend/handlers"
	"collabmatch/backend/handlers/application"
	"collabmatch/backend/handlers/auth"
	"collabmatch/backend/handlers/notifications"
	"collabmatch/backend/handlers/opportunity"
	"collabmatch/backend/handlers/profile"
	"collabmatch/backend/jobs"
	"collabmatch/backend/metrics"
	"collabmatch/backend/models"
	"collabmatch/backend/ratelimit"
	"collabmatch/backend/services/applications"
	"collabmatch/backend/services/feed"
	"collabmatch/backend/services/ranking"
	"collabmatch/backend/services/relevance"
	"collabmatch/backend/services/rolematch"
	"collabmatch/backend/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	cfg.ConfigureLogging()

	// Initialize database connection
	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
	st := postgres.New(db)

	matcher := rolematch.Default()
	if cfg.SynonymsFile != "" {
		table, err := rolematch.LoadTableFile(cfg.SynonymsFile)
		if err != nil {
			log.Fatalf("Error loading synonyms from %s: %v", cfg.SynonymsFile, err)
		}
		matcher = rolematch.NewMatcher(table)
		log.Printf("Loaded role synonyms from %s", cfg.SynonymsFile)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, 24*time.Hour)
	hub := notifications.NewHub()
	dispatcher := notifications.NewDispatcher(st, hub)
	manager := applications.NewManager(st, dispatcher)
	creatorFeed := feed.New(st, relevance.New(matcher), ranking.New(matcher, cfg.DefaultRadiusKm))

	limiter := newLimiter(ctx, cfg)

	reminders := jobs.NewReminders(st, dispatcher, cfg.ReminderAfter)
	if err := reminders.Start(cfg.ReminderSchedule); err != nil {
		log.Fatalf("Error starting reminder job: %v", err)
	}
	defer reminders.Stop()

	// Create router
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	})

	// Public routes (no auth required)
	r.HandleFunc("/api/auth/signup", auth.SignupHandler(st, st, tokens)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/login", auth.LoginHandler(st, tokens)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/test/generate-opportunities", handlers.GenerateTestDataHandler(st)).Methods("POST", "OPTIONS")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Create a subrouter for protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(tokens.AuthMiddleware)

	creatorOnly := auth.RequireRole(models.AccountCreator)
	businessOnly := auth.RequireRole(models.AccountBusiness)
	applyLimit := ratelimit.Middleware(limiter, auth.UserID)

	// Me routes
	protected.Handle("/me/profile", creatorOnly(profile.GetMyProfileHandler(st))).Methods("GET", "OPTIONS")
	protected.Handle("/me/profile", creatorOnly(profile.UpdateProfileHandler(st))).Methods("PUT", "OPTIONS")

	// Opportunity routes
	protected.Handle("/opportunities", businessOnly(opportunity.CreateOpportunityHandler(st))).Methods("POST", "OPTIONS")
	protected.Handle("/opportunities/feed", creatorOnly(opportunity.GetFeedHandler(creatorFeed))).Methods("GET", "OPTIONS")
	protected.HandleFunc("/opportunities/{id}", opportunity.GetOpportunityHandler(st)).Methods("GET", "OPTIONS")
	protected.Handle("/opportunities/{id}/save", creatorOnly(opportunity.SaveOpportunityHandler(st, true))).Methods("POST", "OPTIONS")
	protected.Handle("/opportunities/{id}/save", creatorOnly(opportunity.SaveOpportunityHandler(st, false))).Methods("DELETE", "OPTIONS")
	protected.Handle("/opportunities/{id}/applications", businessOnly(opportunity.GetApplicationsHandler(manager))).Methods("GET", "OPTIONS")

	// Application routes
	protected.Handle("/applications", creatorOnly(applyLimit(application.CreateApplicationHandler(manager)))).Methods("POST", "OPTIONS")
	protected.Handle("/applications", creatorOnly(application.GetApplicationsHandler(manager))).Methods("GET", "OPTIONS")
	protected.Handle("/applications/{id}/accept", businessOnly(application.TransitionHandler(manager, models.StatusAccepted))).Methods("POST", "OPTIONS")
	protected.Handle("/applications/{id}/reject", businessOnly(application.TransitionHandler(manager, models.StatusRejected))).Methods("POST", "OPTIONS")
	protected.Handle("/applications/{id}/withdraw", creatorOnly(application.TransitionHandler(manager, models.StatusWithdrawn))).Methods("POST", "OPTIONS")

	// Notification routes
	protected.HandleFunc("/notifications", notifications.GetNotificationsHandler(st)).Methods("GET", "OPTIONS")
	protected.HandleFunc("/notifications/read", notifications.MarkNotificationsAsReadHandler(st)).Methods("POST", "OPTIONS")
	r.HandleFunc("/ws/notifications", notifications.HandleNotificationWebSocket(hub, tokens))

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Printf("Server stopped")
}

// newLimiter uses Redis when REDIS_URL is set so the submission limit is shared
// across instances, otherwise a per-process token bucket.
func newLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis not reachable, rate limiting fails open until it is")
		}
		return ratelimit.NewRedisLimiter(client, cfg.ApplyRateLimit, cfg.ApplyRateWindow)
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.ApplyRateLimit, cfg.ApplyRateWindow)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(10000)
			}
		}
	}()
	return limiter
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixtrack/internal/auth"
	"fixtrack/internal/cache"
	"fixtrack/internal/config"
	"fixtrack/internal/database"
	"fixtrack/internal/db"
	"fixtrack/internal/handlers"
	"fixtrack/internal/health"
	httpRouter "fixtrack/internal/http"
	"fixtrack/internal/middleware"
	"fixtrack/internal/objectstore"
	"fixtrack/internal/repositories"
	"fixtrack/internal/services"
	"fixtrack/internal/timeutil"
	"fixtrack/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("[Config] JWT secret is empty, set JWT_SECRET")
	}

	if err := timeutil.SetZone(cfg.Shop.Zone); err != nil {
		log.Printf("[Config] Unknown shop zone %q, using %s: %v", cfg.Shop.Zone, timeutil.DefaultZone, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("[DB] Failed to connect: %v", err)
	}
	defer pool.Close()
	log.Printf("Connected to database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	// Run database migrations
	// Uses embedded migrations for standalone binary operation
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool, migrations.FS)
	err = migrator.RunMigrations(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if *migrateOnly {
		return
	}

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("[Redis] Cache unavailable: %v (reports will be computed on every request)", err)
		} else {
			log.Println("[Redis] Cache connected successfully")
			defer cache.Close()
		}
	}

	// Photo storage is optional too
	var photos services.PhotoUploader
	store, err := objectstore.New(context.Background(), cfg.R2)
	switch {
	case err == nil:
		photos = store
	case errors.Is(err, objectstore.ErrDisabled):
		log.Println("[R2] Photo storage not configured, photo uploads disabled")
	default:
		log.Printf("[R2] Photo storage unavailable: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	settingsRepo := repositories.NewSettingsRepository(pool)
	recordRepo := repositories.NewRecordRepository(pool)
	reportRepo := repositories.NewReportRepository(pool)

	// Initialize services
	userService := services.NewUserService(userRepo, settingsRepo, jwtManager)
	settingsService := services.NewSettingsService(settingsRepo)
	recordService := services.NewRecordService(recordRepo, photos)
	reportService := services.NewReportService(reportRepo, recordRepo, services.ShopInfo{
		Name:    cfg.Shop.Name,
		Address: cfg.Shop.Address,
		Phone:   cfg.Shop.Phone,
	}, cfg.SummaryTTL())
	recordService.AfterWrite = reportService.WarmSummary

	router := httpRouter.NewRouter(httpRouter.Handlers{
		Auth:     handlers.NewAuthHandler(userService),
		Records:  handlers.NewRecordHandler(recordService, cfg.Server.MaxUploadMB),
		Reports:  handlers.NewReportHandler(reportService),
		Users:    handlers.NewUserHandler(userService),
		Settings: handlers.NewSettingsHandler(settingsService),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(pool)),
	}, middleware.NewAuthMiddleware(jwtManager, userRepo))

	// Wrap with panic recovery, request logging and CORS
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.APILogging(2 * time.Second)(corsMiddleware(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

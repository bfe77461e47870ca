package main

import (
	"context"
	"errors"
	"log"
	"mhollis/stable-app/internal/api"
	"mhollis/stable-app/internal/config"
	"mhollis/stable-app/internal/repository/mongo"
	"mhollis/stable-app/internal/service"
	"mhollis/stable-app/internal/storage"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Stable App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureHorseIndexes(ctx, appDB.Collection("horses"))
		mongo.EnsureHealthRecordIndexes(ctx, appDB.Collection("health_records"))
		mongo.EnsureScheduleIndexes(ctx, appDB.Collection("schedules"))
		mongo.EnsureAppliedPlanIndexes(ctx, appDB.Collection("applied_plans"))
		mongo.EnsureWorkItemIndexes(ctx, appDB.Collection("work_items"))
		mongo.EnsureCalendarRecordIndexes(ctx, appDB.Collection("calendar_records"))
		mongo.EnsureSessionLogIndexes(ctx, appDB.Collection("session_logs"))
		mongo.EnsureUploadIndexes(ctx, appDB.Collection("uploads"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	horseRepo := mongo.NewMongoHorseRepository(appDB)
	healthRepo := mongo.NewMongoHealthRecordRepository(appDB)
	scheduleRepo := mongo.NewMongoScheduleRepository(appDB)
	planRepo := mongo.NewMongoAppliedPlanRepository(appDB)
	workItemRepo := mongo.NewMongoWorkItemRepository(appDB)
	calendarRepo := mongo.NewMongoCalendarRecordRepository(appDB)
	logRepo := mongo.NewMongoSessionLogRepository(appDB)
	uploadRepo := mongo.NewMongoUploadRepository(appDB)
	txnRunner := mongo.NewTxnRunner(dbClient)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	horseService := service.NewHorseService(horseRepo, userRepo, healthRepo, uploadRepo, fileStorage)
	healthService := service.NewHealthService(healthRepo, horseRepo, uploadRepo, fileStorage)
	scheduleService := service.NewScheduleService(scheduleRepo, planRepo, workItemRepo, calendarRepo, logRepo, horseRepo, uploadRepo, fileStorage, txnRunner)
	logService := service.NewLogService(logRepo, calendarRepo, workItemRepo, horseRepo)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, horseService, healthService, scheduleService, logService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/Adilet2205/CRM_Reminders/internal/config"
	"github.com/Adilet2205/CRM_Reminders/internal/database"
	"github.com/Adilet2205/CRM_Reminders/internal/handlers"
	"github.com/Adilet2205/CRM_Reminders/internal/jobs"
	"github.com/Adilet2205/CRM_Reminders/internal/repository"
	cronjobs "github.com/Adilet2205/CRM_Reminders/internal/scheduler"
	"github.com/Adilet2205/CRM_Reminders/internal/services"
	"github.com/Adilet2205/CRM_Reminders/pkg/email"
	"github.com/Adilet2205/CRM_Reminders/pkg/logger"
	"github.com/Adilet2205/CRM_Reminders/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	timerRepo := repository.NewTimerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// --- Services ---
	userService := services.NewUserService(userRepo)
	timerService := services.NewTimerService(timerRepo)
	notificationService := services.NewNotificationService(notificationRepo)

	// --- Dispatch engine ---
	mailSender := email.NewSMTPSender(cfg)
	dispatcher := jobs.NewTimerDispatcher(timerRepo, notificationRepo, userRepo, mailSender)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, cfg)
	timerHandler := handlers.NewTimerHandler(timerService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	dispatchHandler := handlers.NewDispatchHandler(dispatcher)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// User routes
	router.HandleFunc("/users/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginUserHandler).Methods("POST")

	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")

	// Timer routes
	protectedTimerRoutes := router.PathPrefix("/timers").Subrouter()
	protectedTimerRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedTimerRoutes.HandleFunc("", timerHandler.CreateTimerHandler).Methods("POST")
	protectedTimerRoutes.HandleFunc("", timerHandler.GetTimersHandler).Methods("GET")
	protectedTimerRoutes.HandleFunc("/{id}", timerHandler.GetTimerHandler).Methods("GET")
	protectedTimerRoutes.HandleFunc("/{id}", timerHandler.UpdateTimerHandler).Methods("PUT")
	protectedTimerRoutes.HandleFunc("/{id}", timerHandler.DeleteTimerHandler).Methods("DELETE")
	protectedTimerRoutes.HandleFunc("/{id}/complete", timerHandler.CompleteTimerHandler).Methods("POST")

	// Notification routes
	protectedNotifRoutes := router.PathPrefix("/notifications").Subrouter()
	protectedNotifRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedNotifRoutes.HandleFunc("", notificationHandler.GetUserNotificationsHandler).Methods("GET")
	protectedNotifRoutes.HandleFunc("/{id}/read", notificationHandler.MarkAsReadHandler).Methods("POST")
	protectedNotifRoutes.HandleFunc("/{id}", notificationHandler.DeleteNotificationHandler).Methods("DELETE")

	// Dispatch trigger (invoked by the external scheduler or operators)
	router.HandleFunc("/jobs/process-timers", dispatchHandler.ProcessTimersHandler).Methods("POST")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Periodic dispatch alongside the on-demand endpoint
	cronjobs.StartDispatchCron(dispatcher, cfg.DispatchCron)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

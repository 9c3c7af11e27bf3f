package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medflow/medflow-api/config"
	"github.com/medflow/medflow-api/internal/email"
	appointmentHandler "github.com/medflow/medflow-api/internal/handler/appointment"
	auditHandler "github.com/medflow/medflow-api/internal/handler/audit"
	authHandler "github.com/medflow/medflow-api/internal/handler/auth"
	billingHandler "github.com/medflow/medflow-api/internal/handler/billing"
	healthHandler "github.com/medflow/medflow-api/internal/handler/health"
	inventoryHandler "github.com/medflow/medflow-api/internal/handler/inventory"
	medicalHandler "github.com/medflow/medflow-api/internal/handler/medical"
	patientHandler "github.com/medflow/medflow-api/internal/handler/patient"
	rbacHandler "github.com/medflow/medflow-api/internal/handler/rbac"
	userHandler "github.com/medflow/medflow-api/internal/handler/user"
	"github.com/medflow/medflow-api/internal/middleware"
	"github.com/medflow/medflow-api/internal/repository/postgres"
	"github.com/medflow/medflow-api/internal/router"
	auditService "github.com/medflow/medflow-api/internal/service/audit"
	authService "github.com/medflow/medflow-api/internal/service/auth"
	billingService "github.com/medflow/medflow-api/internal/service/billing"
	eventService "github.com/medflow/medflow-api/internal/service/event"
	inventoryService "github.com/medflow/medflow-api/internal/service/inventory"
	medicalService "github.com/medflow/medflow-api/internal/service/medical"
	patientService "github.com/medflow/medflow-api/internal/service/patient"
	rbacService "github.com/medflow/medflow-api/internal/service/rbac"
	schedulingService "github.com/medflow/medflow-api/internal/service/scheduling"
	userService "github.com/medflow/medflow-api/internal/service/user"
	pkgauth "github.com/medflow/medflow-api/pkg/auth"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/metrics"
	"github.com/medflow/medflow-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	rbacRepo := postgres.NewRBACRepository(db)
	encounterRepo := postgres.NewEncounterRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)

	// Shared infrastructure
	appMetrics := metrics.NewMetrics("medflow", "api")

	jwtSvc := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshDays) * 24 * time.Hour,
	})

	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)

	encryptor, err := security.NewAESEncryptor([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid encryption key")
	}

	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		BaseURL:  cfg.SMTP.BaseURL,
	}, appLogger)

	// Services
	auditSvc := auditService.NewService(auditRepo, appLogger)
	eventSvc := eventService.NewService(outboxRepo, appLogger)
	rbacSvc := rbacService.NewService(rbacRepo, auditSvc, appMetrics, appLogger)
	authSvc := authService.NewService(userRepo, tokenRepo, jwtSvc, hasher, rbacSvc, auditSvc, emailSvc, appLogger)
	userSvc := userService.NewService(userRepo, hasher, auditSvc, appLogger)
	patientSvc := patientService.NewService(patientRepo, encryptor, eventSvc, auditSvc, appLogger)
	schedulingSvc := schedulingService.NewService(appointmentRepo, patientRepo, userRepo, eventSvc, auditSvc, emailSvc, appMetrics, appLogger)
	medicalSvc := medicalService.NewService(encounterRepo, patientRepo, auditSvc, appLogger)
	billingSvc := billingService.NewService(invoiceRepo, patientRepo, eventSvc, auditSvc, appLogger)
	inventorySvc := inventoryService.NewService(inventoryRepo, eventSvc, auditSvc, appLogger)

	// Middleware and handlers
	authMw := middleware.NewAuthMiddleware(jwtSvc, rbacSvc, auditSvc)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}

	r := router.NewRouter(authMw, router.Handlers{
		Auth:        authHandler.NewHandler(authSvc),
		User:        userHandler.NewHandler(userSvc),
		Patient:     patientHandler.NewHandler(patientSvc),
		Appointment: appointmentHandler.NewHandler(schedulingSvc),
		RBAC:        rbacHandler.NewHandler(rbacSvc),
		Medical:     medicalHandler.NewHandler(medicalSvc),
		Billing:     billingHandler.NewHandler(billingSvc),
		Inventory:   inventoryHandler.NewHandler(inventorySvc),
		Audit:       auditHandler.NewHandler(auditSvc),
		Health:      healthHandler.NewHandler(db),
	}, router.Config{
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORS:           corsConfig,
		MetricsPrefix:  "medflow_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Starting API server", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	appLogger.Info("Server stopped")
}

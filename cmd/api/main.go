package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	recordHandler "github.com/jwalitptl/clinic-api/internal/handler/record"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	recordService "github.com/jwalitptl/clinic-api/internal/service/record"
	"github.com/jwalitptl/clinic-api/internal/service/scheduling"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	redisbroker "github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	lg := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logger.Pretty,
	})
	log.Logger = *lg.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	recordRepo := postgres.NewMedicalRecordRepository(db)

	// Events are best-effort; the API runs without Redis.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(cfg.ToBrokerConfig(), lg.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	} else {
		log.Warn().Msg("redis.url not set, appointment events disabled")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New("clinic", registry)

	hasher := security.NewBcryptHasher(0)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	authSvc := authService.NewService(doctorRepo, patientRepo, hasher, jwtService, authService.AdminCredentials{
		Email:        cfg.Admin.Email,
		PasswordHash: cfg.Admin.PasswordHash,
	})
	doctorSvc := doctorService.NewService(doctorRepo, hasher)
	patientSvc := patientService.NewService(patientRepo)
	schedulingSvc := scheduling.NewService(appointmentRepo, doctorRepo, broker, m)
	recordSvc := recordService.NewService(recordRepo, appointmentRepo)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db, registry)
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		doctorHandler.NewHandler(doctorSvc, schedulingSvc),
		patientHandler.NewHandler(patientSvc, recordSvc),
		appointmentHandler.NewHandler(schedulingSvc),
		recordHandler.NewHandler(recordSvc),
		h,
		registry,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "clinic_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

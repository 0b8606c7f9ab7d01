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
	"golang.org/x/time/rate"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/email"
	"github.com/autolavados/booking-api/internal/handler"
	authHandler "github.com/autolavados/booking-api/internal/handler/auth"
	"github.com/autolavados/booking-api/internal/handler/disponibilidad"
	"github.com/autolavados/booking-api/internal/handler/notificacion"
	"github.com/autolavados/booking-api/internal/handler/pago"
	reservaHandler "github.com/autolavados/booking-api/internal/handler/reserva"
	"github.com/autolavados/booking-api/internal/middleware"
	"github.com/autolavados/booking-api/internal/repository/postgres"
	"github.com/autolavados/booking-api/internal/router"
	authService "github.com/autolavados/booking-api/internal/service/auth"
	notificationService "github.com/autolavados/booking-api/internal/service/notification"
	paymentService "github.com/autolavados/booking-api/internal/service/payment"
	reservaService "github.com/autolavados/booking-api/internal/service/reserva"
	"github.com/autolavados/booking-api/pkg/logger"
	"github.com/autolavados/booking-api/pkg/messaging"
	redisbroker "github.com/autolavados/booking-api/pkg/messaging/redis"
	"github.com/autolavados/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := config.LoadEnv(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load environment overrides")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("booking", "api")

	reservaRepo := postgres.NewReservaRepository(db, m)
	horarioRepo := postgres.NewHorarioRepository(db)
	notificacionRepo := postgres.NewNotificacionRepository(db)
	servicioRepo := postgres.NewServicioRepository(db)
	clienteRepo := postgres.NewClienteRepository(db)
	empleadoRepo := postgres.NewEmpleadoRepository(db)

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &appLogger.ZL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	var emailSvc email.Service = email.NoopService{}
	if cfg.SMTP.Enabled {
		emailSvc = email.NewService(cfg.SMTP)
	}

	notifSvc := notificationService.NewService(notificacionRepo, clienteRepo, emailSvc, broker, appLogger, m)
	reservaSvc := reservaService.NewService(reservaRepo, horarioRepo, servicioRepo, clienteRepo, notifSvc, appLogger, m)
	authSvc := authService.NewService(empleadoRepo, cfg.JWT)
	paymentSvc := paymentService.NewService(cfg.Payment, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		handler.NewHealthHandler(db),
		authHandler.NewHandler(authSvc),
		reservaHandler.NewHandler(reservaSvc),
		pago.NewHandler(reservaSvc, paymentSvc, clienteRepo, appLogger),
		notificacion.NewHandler(notificacionRepo),
		disponibilidad.NewHandler(reservaSvc),
		router.Config{
			RateLimit:  rate.Limit(100),
			RateBurst:  200,
			CORSConfig: middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

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

// The worker binary is the resident alternative to cron: it runs the
// four sweep jobs on a fixed interval and serves health and metrics
// endpoints for the scheduler to probe.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/email"
	"github.com/autolavados/booking-api/internal/repository/postgres"
	notificationService "github.com/autolavados/booking-api/internal/service/notification"
	reservaService "github.com/autolavados/booking-api/internal/service/reserva"
	"github.com/autolavados/booking-api/internal/sweep"
	"github.com/autolavados/booking-api/pkg/logger"
	"github.com/autolavados/booking-api/pkg/messaging"
	redisbroker "github.com/autolavados/booking-api/pkg/messaging/redis"
	"github.com/autolavados/booking-api/pkg/metrics"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

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

	m := metrics.NewMetrics("booking", "worker")

	reservaRepo := postgres.NewReservaRepository(db, m)
	horarioRepo := postgres.NewHorarioRepository(db)
	notificacionRepo := postgres.NewNotificacionRepository(db)
	servicioRepo := postgres.NewServicioRepository(db)
	clienteRepo := postgres.NewClienteRepository(db)

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
	sweeper := sweep.NewSweeper(reservaRepo, reservaSvc, appLogger, m)

	opts := sweep.Options{
		UnpaidMinutes:    cfg.Sweep.UnpaidMinutes,
		GraceHours:       cfg.Sweep.GraceHours,
		AutoStartMinutes: cfg.Sweep.AutoStartMinutes,
		ToleranceMinutes: cfg.Sweep.ToleranceMinutes,
	}
	interval := cfg.Sweep.Interval()

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	appLogger.Info("worker started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, sweeper, opts, appLogger)
	for {
		select {
		case <-ctx.Done():
			appLogger.Info("worker stopped")
			return
		case <-ticker.C:
			runOnce(ctx, sweeper, opts, appLogger)
		}
	}
}

func runOnce(ctx context.Context, sweeper *sweep.Sweeper, opts sweep.Options, appLogger *logger.Logger) {
	results, err := sweeper.RunAll(ctx, opts)
	if err != nil {
		appLogger.Error(err, "sweep pass had errors")
	}
	for _, res := range results {
		if res.Candidates > 0 {
			appLogger.Info("sweep finished", "result", res.String())
		}
	}
}

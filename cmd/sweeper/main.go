// The sweeper binary runs the time-based reservation jobs once and
// exits, so it can sit behind cron or a scheduled container. Each job
// is a subcommand; "all" runs the four of them in order.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

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
)

const usage = `usage: sweeper <job> [flags]

jobs:
  cancel-unpaid    cancel PENDIENTE reservations whose payment never arrived
  expire-overdue   cancel or mark as breached reservations past their grace period
  auto-start       move CONFIRMADA reservations into EN_PROCESO at their start time
  auto-complete    complete EN_PROCESO reservations past duration plus tolerance
  all              run the four jobs in order

flags:
  --dry-run            report candidates without changing anything
  --minutos N          minutes without payment before cancel-unpaid fires (default 15)
  --horas N            grace hours past the scheduled time for expire-overdue (default 2)
  --minutos-inicio N   minutes past the scheduled time before auto-start fires (default 5)
  --minutos-fin N      tolerance minutes past duration for auto-complete (default 10)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	job := os.Args[1]

	flags := flag.NewFlagSet(job, flag.ExitOnError)
	dryRun := flags.Bool("dry-run", false, "report candidates without changing anything")
	minutos := flags.Int("minutos", config.DefaultUnpaidMinutes, "minutes without payment before cancellation")
	horas := flags.Int("horas", config.DefaultGraceHours, "grace hours past the scheduled time")
	minutosInicio := flags.Int("minutos-inicio", config.DefaultAutoStartMinutes, "minutes past the scheduled time before auto-start")
	minutosFin := flags.Int("minutos-fin", config.DefaultToleranceMinutes, "tolerance minutes past service duration")
	if err := flags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

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

	reservaRepo := postgres.NewReservaRepository(db, nil)
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
			// A one-shot sweep still has to run when Redis is down;
			// notifications fall back to the database rows alone.
			appLogger.Warn("redis unavailable, notifications will not be published", "error", err.Error())
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	var emailSvc email.Service = email.NoopService{}
	if cfg.SMTP.Enabled {
		emailSvc = email.NewService(cfg.SMTP)
	}

	notifSvc := notificationService.NewService(notificacionRepo, clienteRepo, emailSvc, broker, appLogger, nil)
	reservaSvc := reservaService.NewService(reservaRepo, horarioRepo, servicioRepo, clienteRepo, notifSvc, appLogger, nil)
	sweeper := sweep.NewSweeper(reservaRepo, reservaSvc, appLogger, nil)

	opts := sweep.Options{
		DryRun:           *dryRun,
		UnpaidMinutes:    *minutos,
		GraceHours:       *horas,
		AutoStartMinutes: *minutosInicio,
		ToleranceMinutes: *minutosFin,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var results []sweep.Result
	var runErr error
	switch job {
	case "cancel-unpaid":
		res, err := sweeper.CancelUnpaid(ctx, opts)
		results, runErr = []sweep.Result{res}, err
	case "expire-overdue":
		res, err := sweeper.ExpireOverdue(ctx, opts)
		results, runErr = []sweep.Result{res}, err
	case "auto-start":
		res, err := sweeper.AutoStart(ctx, opts)
		results, runErr = []sweep.Result{res}, err
	case "auto-complete":
		res, err := sweeper.AutoComplete(ctx, opts)
		results, runErr = []sweep.Result{res}, err
	case "all":
		results, runErr = sweeper.RunAll(ctx, opts)
	default:
		fmt.Fprintf(os.Stderr, "unknown job %q\n\n%s", job, usage)
		os.Exit(2)
	}

	for _, res := range results {
		fmt.Println(res)
	}

	// Per-reservation failures are already counted in the results; a
	// non-zero exit means the sweep itself could not run.
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("sweep failed")
	}
}

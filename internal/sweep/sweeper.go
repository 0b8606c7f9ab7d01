// Package sweep implements the time-based batch jobs that move
// reservations the staff never touched: cancelling unpaid holds,
// flagging no-shows, auto-starting and auto-completing services.
//
// Each job is a short-lived batch: it re-evaluates its candidate query
// from current state, then processes candidates one by one. A
// per-record failure is logged and skipped, never aborting the batch;
// a reservation another process already transitioned is skipped
// silently. Running a job twice with the same clock transitions
// nothing the second time.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	"github.com/autolavados/booking-api/internal/service/reserva"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
	"github.com/autolavados/booking-api/pkg/logger"
	"github.com/autolavados/booking-api/pkg/metrics"
)

// Job names, used for logging and metric labels.
const (
	JobCancelUnpaid  = "cancel_unpaid"
	JobExpireOverdue = "expire_overdue"
	JobAutoStart     = "auto_start"
	JobAutoComplete  = "auto_complete"
)

// Options configures one sweep run. Zero thresholds fall back to the
// documented defaults (15 min unpaid, 2 h grace, 5 min auto-start,
// 10 min completion tolerance).
type Options struct {
	DryRun           bool
	UnpaidMinutes    int
	GraceHours       int
	AutoStartMinutes int
	ToleranceMinutes int
}

func (o Options) unpaidAfter() time.Duration {
	m := o.UnpaidMinutes
	if m <= 0 {
		m = config.DefaultUnpaidMinutes
	}
	return time.Duration(m) * time.Minute
}

func (o Options) grace() time.Duration {
	h := o.GraceHours
	if h <= 0 {
		h = config.DefaultGraceHours
	}
	return time.Duration(h) * time.Hour
}

func (o Options) autoStartAfter() time.Duration {
	m := o.AutoStartMinutes
	if m <= 0 {
		m = config.DefaultAutoStartMinutes
	}
	return time.Duration(m) * time.Minute
}

func (o Options) tolerance() time.Duration {
	m := o.ToleranceMinutes
	if m <= 0 {
		m = config.DefaultToleranceMinutes
	}
	return time.Duration(m) * time.Minute
}

// Result reports what one sweep run found and did.
type Result struct {
	Job          string
	Candidates   int
	Transitioned int
	Skipped      int
	Failed       int
	DryRun       bool
}

func (r Result) String() string {
	if r.DryRun {
		return fmt.Sprintf("%s: %d candidates found, dry-run, no changes made", r.Job, r.Candidates)
	}
	return fmt.Sprintf("%s: %d candidates, %d transitioned, %d skipped, %d failed",
		r.Job, r.Candidates, r.Transitioned, r.Skipped, r.Failed)
}

// Sweeper runs the four sweep jobs against the reservation service. The
// clock is injected so tests can drive every timing edge
// deterministically.
type Sweeper struct {
	reservas repository.ReservaRepository
	svc      *reserva.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSweeper(
	reservas repository.ReservaRepository,
	svc *reserva.Service,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Sweeper {
	return &Sweeper{
		reservas: reservas,
		svc:      svc,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// SetClock replaces the wall-clock source for the sweeps.
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// CancelUnpaid cancels reservations that sat in PENDIENTE longer than
// the unpaid threshold without a payment confirmation, protecting slot
// inventory from abandoned holds.
func (s *Sweeper) CancelUnpaid(ctx context.Context, opts Options) (Result, error) {
	now := s.now()
	wallStart := time.Now()
	limite := now.Add(-opts.unpaidAfter())
	res := Result{Job: JobCancelUnpaid, DryRun: opts.DryRun}

	candidates, err := s.reservas.ListPendientesCreadasAntes(ctx, limite)
	if err != nil {
		return res, fmt.Errorf("candidate query failed: %w", err)
	}
	res.Candidates = len(candidates)

	minutos := int(opts.unpaidAfter().Minutes())
	detalle := fmt.Sprintf("Reserva cancelada automáticamente por falta de pago después de %d minutos.", minutos)

	for _, r := range candidates {
		if opts.DryRun {
			s.logger.Info("dry-run: would cancel unpaid reservation",
				"reserva_id", r.ID.String(), "fecha_creacion", r.FechaCreacion)
			continue
		}
		s.apply(ctx, &res, r, model.EventoCancelacionSinPago, now, detalle)
	}

	s.observe(res, wallStart)
	return res, nil
}

// ExpireOverdue handles overdue PENDIENTE/CONFIRMADA reservations past
// the grace period. The stricter incumplida condition is evaluated
// first: a reservation whose whole service window has also elapsed is a
// no-show and is marked INCUMPLIDA; anything else past grace is merely
// cancelled.
func (s *Sweeper) ExpireOverdue(ctx context.Context, opts Options) (Result, error) {
	now := s.now()
	wallStart := time.Now()
	limite := now.Add(-opts.grace())
	res := Result{Job: JobExpireOverdue, DryRun: opts.DryRun}

	candidates, err := s.reservas.ListActivasProgramadasAntes(ctx, limite)
	if err != nil {
		return res, fmt.Errorf("candidate query failed: %w", err)
	}
	res.Candidates = len(candidates)

	horas := int(opts.grace().Hours())

	for _, r := range candidates {
		ev := model.EventoCancelacionVencida
		motivo := "incumplimiento"
		if r.Estado == model.EstadoPendiente {
			motivo = "falta de pago"
		}
		detalle := fmt.Sprintf("Reserva cancelada automáticamente por %s después de %d horas de la fecha programada.", motivo, horas)

		servicio, err := s.svc.GetServicio(ctx, r.ServicioID)
		if err != nil {
			res.Failed++
			s.logger.Error(err, "failed to load service for overdue reservation",
				"reserva_id", r.ID.String())
			continue
		}
		if now.After(r.FechaHora.Add(servicio.Duracion())) {
			ev = model.EventoIncumplimiento
			detalle = "Reserva marcada como INCUMPLIDA automáticamente por el sistema."
		}

		if opts.DryRun {
			s.logger.Info("dry-run: would expire overdue reservation",
				"reserva_id", r.ID.String(), "evento", string(ev), "fecha_hora", r.FechaHora)
			continue
		}
		s.apply(ctx, &res, r, ev, now, detalle)
	}

	s.observe(res, wallStart)
	return res, nil
}

// AutoStart begins confirmed services the staff did not start within
// the start threshold past their scheduled time.
func (s *Sweeper) AutoStart(ctx context.Context, opts Options) (Result, error) {
	now := s.now()
	wallStart := time.Now()
	limite := now.Add(-opts.autoStartAfter())
	res := Result{Job: JobAutoStart, DryRun: opts.DryRun}

	candidates, err := s.reservas.ListConfirmadasProgramadasAntes(ctx, limite)
	if err != nil {
		return res, fmt.Errorf("candidate query failed: %w", err)
	}
	res.Candidates = len(candidates)

	minutos := int(opts.autoStartAfter().Minutes())
	detalle := fmt.Sprintf("Servicio iniciado automáticamente %d minutos después de la hora programada.", minutos)

	for _, r := range candidates {
		if opts.DryRun {
			s.logger.Info("dry-run: would auto-start reservation",
				"reserva_id", r.ID.String(), "fecha_hora", r.FechaHora)
			continue
		}
		s.apply(ctx, &res, r, model.EventoInicioAutomatico, now, detalle)
	}

	s.observe(res, wallStart)
	return res, nil
}

// AutoComplete finishes in-process services past their own deadline:
// start time plus the catalog duration plus the tolerance. The deadline
// is computed per reservation, not as a single global cutoff.
func (s *Sweeper) AutoComplete(ctx context.Context, opts Options) (Result, error) {
	now := s.now()
	wallStart := time.Now()
	res := Result{Job: JobAutoComplete, DryRun: opts.DryRun}

	candidates, err := s.reservas.ListEnProcesoConInicio(ctx)
	if err != nil {
		return res, fmt.Errorf("candidate query failed: %w", err)
	}

	tolerancia := opts.tolerance()

	for _, r := range candidates {
		if r.FechaInicioServicio == nil {
			continue
		}
		servicio, err := s.svc.GetServicio(ctx, r.ServicioID)
		if err != nil {
			res.Failed++
			s.logger.Error(err, "failed to load service for in-process reservation",
				"reserva_id", r.ID.String())
			continue
		}

		deadline := r.FechaInicioServicio.Add(servicio.Duracion() + tolerancia)
		if !now.After(deadline) {
			continue
		}
		res.Candidates++

		detalle := fmt.Sprintf("Servicio finalizado automáticamente al exceder la duración de %d minutos más %d minutos de tolerancia.",
			servicio.DuracionMinutos, int(tolerancia.Minutes()))

		if opts.DryRun {
			s.logger.Info("dry-run: would auto-complete reservation",
				"reserva_id", r.ID.String(), "deadline", deadline)
			continue
		}
		s.apply(ctx, &res, r, model.EventoFinAutomatico, now, detalle)
	}

	s.observe(res, wallStart)
	return res, nil
}

// RunAll executes the four jobs in order. Job-level errors are
// collected but do not stop the remaining jobs.
func (s *Sweeper) RunAll(ctx context.Context, opts Options) ([]Result, error) {
	jobs := []func(context.Context, Options) (Result, error){
		s.CancelUnpaid,
		s.ExpireOverdue,
		s.AutoStart,
		s.AutoComplete,
	}

	var results []Result
	var firstErr error
	for _, job := range jobs {
		res, err := job(ctx, opts)
		results = append(results, res)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// apply commits one transition, classifying the outcome. Stale guards
// count as skipped; anything else failing counts as failed. Both leave
// the reservation for the next pass.
func (s *Sweeper) apply(ctx context.Context, res *Result, r *model.Reserva, ev model.Evento, now time.Time, detalle string) {
	err := s.svc.Transition(ctx, r, ev, now, detalle)
	switch {
	case err == nil:
		res.Transitioned++
		s.logger.Info("reservation transitioned",
			"job", res.Job, "reserva_id", r.ID.String(),
			"evento", string(ev), "estado", string(r.Estado))
	case apperrors.Is(err, apperrors.ErrStaleTransition):
		res.Skipped++
		s.logger.Debug("reservation already transitioned elsewhere",
			"job", res.Job, "reserva_id", r.ID.String())
	default:
		res.Failed++
		s.logger.Error(err, "failed to transition reservation",
			"job", res.Job, "reserva_id", r.ID.String(), "evento", string(ev))
	}
}

func (s *Sweeper) observe(res Result, wallStart time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepCandidates.WithLabelValues(res.Job).Add(float64(res.Candidates))
	s.metrics.SweepTransitions.WithLabelValues(res.Job).Add(float64(res.Transitioned))
	s.metrics.SweepSkipped.WithLabelValues(res.Job).Add(float64(res.Skipped))
	s.metrics.SweepFailures.WithLabelValues(res.Job).Add(float64(res.Failed))
	s.metrics.SweepDuration.WithLabelValues(res.Job).Observe(time.Since(wallStart).Seconds())
	s.metrics.SweepLastRun.WithLabelValues(res.Job).SetToCurrentTime()
}

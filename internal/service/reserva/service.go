package reserva

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	"github.com/autolavados/booking-api/internal/service/notification"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
	"github.com/autolavados/booking-api/pkg/logger"
	"github.com/autolavados/booking-api/pkg/metrics"
)

const (
	catalogTTL     = 5 * time.Minute
	catalogCleanup = 15 * time.Minute
)

// Service owns the reservation lifecycle: booking creation against the
// slot ledger, the transition table, and the post-effects every
// committed transition carries (slot release, loyalty points,
// notifications).
type Service struct {
	reservas  repository.ReservaRepository
	horarios  repository.HorarioRepository
	servicios repository.ServicioRepository
	clientes  repository.ClienteRepository
	notifSvc  notification.Service
	logger    *logger.Logger
	metrics   *metrics.Metrics
	catalog   *cache.Cache
	now       func() time.Time
}

func NewService(
	reservas repository.ReservaRepository,
	horarios repository.HorarioRepository,
	servicios repository.ServicioRepository,
	clientes repository.ClienteRepository,
	notifSvc notification.Service,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		reservas:  reservas,
		horarios:  horarios,
		servicios: servicios,
		clientes:  clientes,
		notifSvc:  notifSvc,
		logger:    logger,
		metrics:   m,
		catalog:   cache.New(catalogTTL, catalogCleanup),
		now:       time.Now,
	}
}

// SetClock replaces the wall-clock source. Interactive paths stamp with
// it; sweeps pass their own instant per call.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateReserva books a service: it reserves capacity in every window
// covering the requested instant, then creates the reservation in
// PENDIENTE. Capacity is the booking-creation guard; a full window
// rejects the request outright.
func (s *Service) CreateReserva(ctx context.Context, req *model.CreateReservaRequest) (*model.Reserva, error) {
	now := s.now()

	if !req.FechaHora.After(now) {
		return nil, apperrors.NewBadRequest("reservation cannot be scheduled in the past", nil)
	}

	servicio, err := s.GetServicio(ctx, req.ServicioID)
	if err != nil {
		return nil, err
	}
	if !servicio.Activo {
		return nil, apperrors.NewBadRequest("service is not active", nil)
	}

	windows, err := s.horarios.ListCubriendo(ctx, req.FechaHora)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if len(windows) == 0 {
		if s.metrics != nil {
			s.metrics.BookingsRejected.WithLabelValues("no_window").Inc()
		}
		return nil, apperrors.CapacityExceeded(req.FechaHora.Format("2006-01-02 15:04"))
	}

	// Conditional increments; on a full window, roll back the ones that
	// already succeeded so a rejected booking holds nothing.
	taken := make([]*model.HorarioDisponible, 0, len(windows))
	for _, w := range windows {
		ok, err := s.horarios.Incrementar(ctx, w.ID)
		if err == nil && !ok {
			err = apperrors.CapacityExceeded(w.Ventana())
		}
		if err != nil {
			for _, t := range taken {
				if _, derr := s.horarios.Decrementar(ctx, t.ID); derr != nil {
					s.logger.Error(derr, "failed to roll back slot increment",
						"horario_id", t.ID.String())
				}
			}
			if s.metrics != nil {
				s.metrics.BookingsRejected.WithLabelValues("capacity").Inc()
			}
			return nil, err
		}
		taken = append(taken, w)
	}

	reserva := &model.Reserva{
		ID:                 uuid.New(),
		ClienteID:          req.ClienteID,
		ServicioID:         req.ServicioID,
		BahiaID:            req.BahiaID,
		FechaHora:          req.FechaHora,
		Estado:             model.EstadoPendiente,
		Notas:              req.Notas,
		PrecioFinal:        servicio.Precio,
		FechaCreacion:      now,
		FechaActualizacion: now,
	}

	if err := s.reservas.Create(ctx, reserva); err != nil {
		for _, t := range taken {
			if _, derr := s.horarios.Decrementar(ctx, t.ID); derr != nil {
				s.logger.Error(derr, "failed to roll back slot increment",
					"horario_id", t.ID.String())
			}
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}

	s.emit(ctx, reserva, model.NotifReservaCreada, "Reserva Creada",
		fmt.Sprintf("Su reserva para %s el %s ha sido registrada. Complete el pago para confirmarla.",
			servicio.Nombre, formatFechaHora(reserva.FechaHora)), false)

	return reserva, nil
}

// Transition drives the reservation along the edge ev owns, stamped at
// now, and persists it with the optimistic source-state guard. A stale
// guard failure is returned as-is so callers can skip silently; any
// post-effect (slot release, points, notification) is best-effort and
// never rolls the committed transition back.
func (s *Service) Transition(ctx context.Context, reserva *model.Reserva, ev model.Evento, now time.Time, detalle string) error {
	from := reserva.Estado

	entry, err := model.Apply(reserva, ev, now, detalle)
	if err != nil {
		return err
	}

	libera := reserva.Estado.EsTerminal() && !reserva.SlotLiberado
	if libera {
		reserva.SlotLiberado = true
	}

	if err := s.reservas.UpdateEstadoFrom(ctx, reserva, from); err != nil {
		return err
	}

	if libera {
		s.releaseSlots(ctx, reserva)
	}

	if reserva.Estado == model.EstadoCompletada {
		s.awardPoints(ctx, reserva)
	}

	s.notifyTransition(ctx, reserva, entry)
	return nil
}

// TransitionByID is the interactive entry point: it loads fresh state
// before applying, so staff actions race cleanly with sweeps.
func (s *Service) TransitionByID(ctx context.Context, id uuid.UUID, ev model.Evento, detalle string, empleadoID *uuid.UUID) (*model.Reserva, error) {
	reserva, err := s.reservas.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if empleadoID != nil {
		reserva.EmpleadoID = empleadoID
	}
	if err := s.Transition(ctx, reserva, ev, s.now(), detalle); err != nil {
		return nil, err
	}
	return reserva, nil
}

func (s *Service) GetReserva(ctx context.Context, id uuid.UUID) (*model.Reserva, error) {
	return s.reservas.Get(ctx, id)
}

func (s *Service) ListReservas(ctx context.Context, filters *model.ReservaFilters) ([]*model.Reserva, error) {
	return s.reservas.List(ctx, filters)
}

func (s *Service) Disponibilidad(ctx context.Context, fecha time.Time) ([]*model.HorarioDisponible, error) {
	return s.horarios.ListByFecha(ctx, fecha)
}

// SetReferenciaPago records the gateway transaction reference issued
// when payment was initiated for the reservation.
func (s *Service) SetReferenciaPago(ctx context.Context, id uuid.UUID, referencia string) error {
	return s.reservas.SetReferenciaPago(ctx, id, referencia)
}

// HandlePaymentStatus maps a gateway callback onto the state machine:
// approved confirms the pending reservation, anything else cancels it.
func (s *Service) HandlePaymentStatus(ctx context.Context, referencia string, aprobado bool) (*model.Reserva, error) {
	reserva, err := s.reservas.GetByReferenciaPago(ctx, referencia)
	if err != nil {
		return nil, err
	}

	ev := model.EventoPagoConfirmado
	detalle := fmt.Sprintf("Pago aprobado (referencia %s).", referencia)
	if !aprobado {
		ev = model.EventoPagoRechazado
		detalle = fmt.Sprintf("Pago rechazado por la pasarela (referencia %s).", referencia)
	}

	if err := s.Transition(ctx, reserva, ev, s.now(), detalle); err != nil {
		return nil, err
	}
	return reserva, nil
}

// GetServicio reads through a short-lived catalog cache; service
// definitions barely change and every sweep pass needs durations.
func (s *Service) GetServicio(ctx context.Context, id uuid.UUID) (*model.Servicio, error) {
	if v, ok := s.catalog.Get(id.String()); ok {
		return v.(*model.Servicio), nil
	}
	servicio, err := s.servicios.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.catalog.Set(id.String(), servicio, cache.DefaultExpiration)
	return servicio, nil
}

// releaseSlots decrements every window covering the reservation's
// scheduled time. The reservation's slot_liberado flag was persisted
// with the transition, so re-running cannot double-decrement; a counter
// already at zero is clamped by the repository and only logged.
func (s *Service) releaseSlots(ctx context.Context, reserva *model.Reserva) {
	windows, err := s.horarios.ListCubriendo(ctx, reserva.FechaHora)
	if err != nil {
		s.logger.Error(err, "failed to find windows to release",
			"reserva_id", reserva.ID.String())
		return
	}
	for _, w := range windows {
		ok, err := s.horarios.Decrementar(ctx, w.ID)
		if err != nil {
			s.logger.Error(err, "failed to release slot",
				"reserva_id", reserva.ID.String(), "horario_id", w.ID.String())
			continue
		}
		if !ok {
			s.logger.Warn("slot counter already at zero on release",
				"reserva_id", reserva.ID.String(), "horario_id", w.ID.String())
		}
	}
}

func (s *Service) awardPoints(ctx context.Context, reserva *model.Reserva) {
	servicio, err := s.GetServicio(ctx, reserva.ServicioID)
	if err != nil {
		s.logger.Error(err, "failed to load service for points",
			"reserva_id", reserva.ID.String())
		return
	}
	if servicio.PuntosOtorgados <= 0 {
		return
	}
	if err := s.clientes.AcumularPuntos(ctx, reserva.ClienteID, servicio.PuntosOtorgados); err != nil {
		s.logger.Error(err, "failed to award loyalty points",
			"reserva_id", reserva.ID.String())
		return
	}
	s.emit(ctx, reserva, model.NotifPuntosAcumulados, "Puntos Acumulados",
		fmt.Sprintf("Ha acumulado %d puntos por su servicio %s.",
			servicio.PuntosOtorgados, servicio.Nombre), false)
}

// notifyTransition emits exactly one customer notification per
// transition, plus one for the assigned employee on service start and
// completion.
func (s *Service) notifyTransition(ctx context.Context, reserva *model.Reserva, entry model.AuditEntry) {
	nombre := "su servicio"
	if servicio, err := s.GetServicio(ctx, reserva.ServicioID); err == nil {
		nombre = servicio.Nombre
	}
	cuando := formatFechaHora(reserva.FechaHora)

	switch entry.Hacia {
	case model.EstadoConfirmada:
		s.emit(ctx, reserva, model.NotifReservaConfirmada, "Reserva Confirmada",
			fmt.Sprintf("Su reserva para %s programada para %s ha sido confirmada.", nombre, cuando), false)
	case model.EstadoCancelada:
		mensaje := fmt.Sprintf("Su reserva para %s programada para %s ha sido cancelada.", nombre, cuando)
		if entry.Automatica {
			mensaje = fmt.Sprintf("Su reserva para %s programada para %s ha sido cancelada automáticamente. %s", nombre, cuando, entry.Detalle)
		}
		s.emit(ctx, reserva, model.NotifReservaCancelada, "Reserva Cancelada", mensaje, false)
	case model.EstadoIncumplida:
		s.emit(ctx, reserva, model.NotifReservaIncumplida, "Reserva Incumplida",
			fmt.Sprintf("Su reserva para %s programada para %s ha sido marcada como incumplida por el sistema.", nombre, cuando), false)
	case model.EstadoEnProceso:
		s.emit(ctx, reserva, model.NotifServicioIniciado, "Servicio Iniciado",
			fmt.Sprintf("Su servicio %s ha sido iniciado. Puede seguir el progreso en tiempo real.", nombre), true)
	case model.EstadoCompletada:
		s.emit(ctx, reserva, model.NotifServicioFinalizado, "Servicio Finalizado",
			fmt.Sprintf("Su servicio %s ha sido completado. ¡Gracias por confiar en nosotros!", nombre), true)
	}
}

func (s *Service) emit(ctx context.Context, reserva *model.Reserva, tipo model.NotificacionTipo, titulo, mensaje string, incluirEmpleado bool) {
	rid := reserva.ID
	cid := reserva.ClienteID

	n := &model.Notificacion{
		ClienteID: &cid,
		ReservaID: &rid,
		Tipo:      tipo,
		Titulo:    titulo,
		Mensaje:   mensaje,
	}
	if err := s.notifSvc.Notify(ctx, n); err != nil {
		s.logger.Error(err, "failed to emit notification",
			"reserva_id", reserva.ID.String(), "tipo", string(tipo))
	}

	if incluirEmpleado && reserva.EmpleadoID != nil {
		en := &model.Notificacion{
			EmpleadoID: reserva.EmpleadoID,
			ReservaID:  &rid,
			Tipo:       tipo,
			Titulo:     titulo,
			Mensaje:    mensaje,
		}
		if err := s.notifSvc.Notify(ctx, en); err != nil {
			s.logger.Error(err, "failed to emit employee notification",
				"reserva_id", reserva.ID.String(), "tipo", string(tipo))
		}
	}
}

func formatFechaHora(t time.Time) string {
	return t.Format("02/01/2006 a las 15:04")
}

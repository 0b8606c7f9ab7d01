package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// ReservaRepository persists reservations. Estado writes go through
	// UpdateEstadoFrom, which enforces the optimistic source-state guard.
	ReservaRepository interface {
		Create(ctx context.Context, reserva *model.Reserva) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reserva, error)
		List(ctx context.Context, filters *model.ReservaFilters) ([]*model.Reserva, error)

		// UpdateEstadoFrom persists the reservation's current fields only
		// if the stored estado still equals from. Zero rows affected means
		// another process already transitioned it; implementations return
		// a stale-transition error the caller skips on.
		UpdateEstadoFrom(ctx context.Context, reserva *model.Reserva, from model.ReservaEstado) error

		SetReferenciaPago(ctx context.Context, id uuid.UUID, referencia string) error
		GetByReferenciaPago(ctx context.Context, referencia string) (*model.Reserva, error)

		// Sweep candidate queries. Each is re-evaluated from current state
		// every run, which is what makes the sweeps self-healing.
		ListPendientesCreadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error)
		ListActivasProgramadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error)
		ListConfirmadasProgramadasAntes(ctx context.Context, limite time.Time) ([]*model.Reserva, error)
		ListEnProcesoConInicio(ctx context.Context) ([]*model.Reserva, error)
	}

	// HorarioRepository is the slot ledger. Counter moves are conditional
	// single-statement updates so concurrent bookers and sweeps cannot
	// break the 0 <= reservas_actuales <= capacidad invariant.
	HorarioRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.HorarioDisponible, error)
		ListCubriendo(ctx context.Context, t time.Time) ([]*model.HorarioDisponible, error)
		ListByFecha(ctx context.Context, fecha time.Time) ([]*model.HorarioDisponible, error)

		// Incrementar adds one occupant if capacity allows; returns false
		// when the window is already full.
		Incrementar(ctx context.Context, id uuid.UUID) (bool, error)
		// Decrementar removes one occupant, clamped at zero; returns false
		// when the counter was already zero.
		Decrementar(ctx context.Context, id uuid.UUID) (bool, error)
	}

	NotificacionRepository interface {
		Create(ctx context.Context, n *model.Notificacion) error
		ListByCliente(ctx context.Context, clienteID uuid.UUID, soloNoLeidas bool) ([]*model.Notificacion, error)
		MarcarLeida(ctx context.Context, id uuid.UUID, cuando time.Time) error
	}

	ServicioRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Servicio, error)
		ListActivos(ctx context.Context) ([]*model.Servicio, error)
	}

	ClienteRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
		AcumularPuntos(ctx context.Context, id uuid.UUID, puntos int) error
	}

	EmpleadoRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Empleado, error)
		GetByEmail(ctx context.Context, email string) (*model.Empleado, error)
	}
)

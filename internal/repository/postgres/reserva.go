package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
	"github.com/autolavados/booking-api/pkg/metrics"
)

// reservaColumns ends with a newline so callers can concatenate a FROM
// clause directly after it.
const reservaColumns = `
	id, cliente_id, servicio_id, bahia_id, empleado_id, fecha_hora,
	estado, notas, precio_final, descuento_aplicado, referencia_pago,
	fecha_confirmacion, fecha_inicio_servicio, slot_liberado,
	fecha_creacion, fecha_actualizacion
`

type reservaRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewReservaRepository(db *sqlx.DB, m *metrics.Metrics) repository.ReservaRepository {
	return &reservaRepository{db: db, metrics: m}
}

// observe records the outcome and latency of a database operation.
// A nil metrics receiver (one-shot CLI runs) makes it a no-op.
func (r *reservaRepository) observe(op string, start time.Time, err *error) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if *err != nil {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
	r.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *reservaRepository) Create(ctx context.Context, reserva *model.Reserva) (err error) {
	defer r.observe("reserva_create", time.Now(), &err)

	query := `
		INSERT INTO reservas (
			id, cliente_id, servicio_id, bahia_id, empleado_id, fecha_hora,
			estado, notas, precio_final, descuento_aplicado, referencia_pago,
			fecha_confirmacion, fecha_inicio_servicio, slot_liberado,
			fecha_creacion, fecha_actualizacion
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.ExecContext(ctx, query,
		reserva.ID,
		reserva.ClienteID,
		reserva.ServicioID,
		reserva.BahiaID,
		reserva.EmpleadoID,
		reserva.FechaHora,
		reserva.Estado,
		reserva.Notas,
		reserva.PrecioFinal,
		reserva.DescuentoAplicado,
		reserva.ReferenciaPago,
		reserva.FechaConfirmacion,
		reserva.FechaInicioServicio,
		reserva.SlotLiberado,
		reserva.FechaCreacion,
		reserva.FechaActualizacion,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *reservaRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Reserva, err error) {
	defer r.observe("reserva_get", time.Now(), &err)

	query := `SELECT` + reservaColumns + `FROM reservas WHERE id = $1`

	var reserva model.Reserva
	err = r.db.GetContext(ctx, &reserva, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("reservation", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reserva, nil
}

func (r *reservaRepository) List(ctx context.Context, filters *model.ReservaFilters) (_ []*model.Reserva, err error) {
	defer r.observe("reserva_list", time.Now(), &err)

	query := `SELECT` + reservaColumns + `FROM reservas WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.ClienteID != uuid.Nil {
			query += fmt.Sprintf(" AND cliente_id = $%d", argCount)
			args = append(args, filters.ClienteID)
			argCount++
		}
		if filters.EmpleadoID != uuid.Nil {
			query += fmt.Sprintf(" AND empleado_id = $%d", argCount)
			args = append(args, filters.EmpleadoID)
			argCount++
		}
		if filters.Estado != "" {
			query += fmt.Sprintf(" AND estado = $%d", argCount)
			args = append(args, filters.Estado)
			argCount++
		}
		if !filters.Desde.IsZero() {
			query += fmt.Sprintf(" AND fecha_hora >= $%d", argCount)
			args = append(args, filters.Desde)
			argCount++
		}
		if !filters.Hasta.IsZero() {
			query += fmt.Sprintf(" AND fecha_hora < $%d", argCount)
			args = append(args, filters.Hasta)
			argCount++
		}
	}

	query += " ORDER BY fecha_hora DESC"

	var reservas []*model.Reserva
	if err := r.db.SelectContext(ctx, &reservas, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservas, nil
}

// UpdateEstadoFrom is the single write path for transitions. The WHERE
// clause re-verifies the source state so two racing sweeps can never
// both commit the same edge.
func (r *reservaRepository) UpdateEstadoFrom(ctx context.Context, reserva *model.Reserva, from model.ReservaEstado) (err error) {
	defer r.observe("reserva_update_estado", time.Now(), &err)

	query := `
		UPDATE reservas
		SET estado = $1, notas = $2, fecha_confirmacion = $3,
		    fecha_inicio_servicio = $4, slot_liberado = $5,
		    empleado_id = $6, fecha_actualizacion = $7
		WHERE id = $8 AND estado = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		reserva.Estado,
		reserva.Notas,
		reserva.FechaConfirmacion,
		reserva.FechaInicioServicio,
		reserva.SlotLiberado,
		reserva.EmpleadoID,
		reserva.FechaActualizacion,
		reserva.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", reserva.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.StaleTransition(reserva.ID.String())
	}
	return nil
}

func (r *reservaRepository) SetReferenciaPago(ctx context.Context, id uuid.UUID, referencia string) (err error) {
	defer r.observe("reserva_set_referencia", time.Now(), &err)

	query := `
		UPDATE reservas
		SET referencia_pago = $1, fecha_actualizacion = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, referencia, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("reservation", nil)
	}
	return nil
}

func (r *reservaRepository) GetByReferenciaPago(ctx context.Context, referencia string) (_ *model.Reserva, err error) {
	defer r.observe("reserva_get_by_referencia", time.Now(), &err)

	query := `SELECT` + reservaColumns + `FROM reservas WHERE referencia_pago = $1`

	var reserva model.Reserva
	err = r.db.GetContext(ctx, &reserva, query, referencia)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("reservation", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation by payment reference: %w", err)
	}
	return &reserva, nil
}

func (r *reservaRepository) ListPendientesCreadasAntes(ctx context.Context, limite time.Time) (_ []*model.Reserva, err error) {
	defer r.observe("sweep_list_pendientes", time.Now(), &err)

	query := `SELECT` + reservaColumns + `
		FROM reservas
		WHERE estado = $1 AND fecha_creacion < $2
		ORDER BY fecha_creacion ASC
	`
	var reservas []*model.Reserva
	if err := r.db.SelectContext(ctx, &reservas, query, model.EstadoPendiente, limite); err != nil {
		return nil, fmt.Errorf("failed to list unpaid reservations: %w", err)
	}
	return reservas, nil
}

func (r *reservaRepository) ListActivasProgramadasAntes(ctx context.Context, limite time.Time) (_ []*model.Reserva, err error) {
	defer r.observe("sweep_list_activas", time.Now(), &err)

	query := `SELECT` + reservaColumns + `
		FROM reservas
		WHERE estado IN ($1, $2) AND fecha_hora < $3
		ORDER BY fecha_hora ASC
	`
	var reservas []*model.Reserva
	if err := r.db.SelectContext(ctx, &reservas, query, model.EstadoPendiente, model.EstadoConfirmada, limite); err != nil {
		return nil, fmt.Errorf("failed to list overdue reservations: %w", err)
	}
	return reservas, nil
}

func (r *reservaRepository) ListConfirmadasProgramadasAntes(ctx context.Context, limite time.Time) (_ []*model.Reserva, err error) {
	defer r.observe("sweep_list_confirmadas", time.Now(), &err)

	query := `SELECT` + reservaColumns + `
		FROM reservas
		WHERE estado = $1 AND fecha_hora < $2
		ORDER BY fecha_hora ASC
	`
	var reservas []*model.Reserva
	if err := r.db.SelectContext(ctx, &reservas, query, model.EstadoConfirmada, limite); err != nil {
		return nil, fmt.Errorf("failed to list auto-start candidates: %w", err)
	}
	return reservas, nil
}

func (r *reservaRepository) ListEnProcesoConInicio(ctx context.Context) (_ []*model.Reserva, err error) {
	defer r.observe("sweep_list_en_proceso", time.Now(), &err)

	query := `SELECT` + reservaColumns + `
		FROM reservas
		WHERE estado = $1 AND fecha_inicio_servicio IS NOT NULL
		ORDER BY fecha_inicio_servicio ASC
	`
	var reservas []*model.Reserva
	if err := r.db.SelectContext(ctx, &reservas, query, model.EstadoEnProceso); err != nil {
		return nil, fmt.Errorf("failed to list in-process reservations: %w", err)
	}
	return reservas, nil
}

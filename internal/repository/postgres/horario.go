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
)

type horarioRepository struct {
	db *sqlx.DB
}

func NewHorarioRepository(db *sqlx.DB) repository.HorarioRepository {
	return &horarioRepository{db: db}
}

func (r *horarioRepository) Get(ctx context.Context, id uuid.UUID) (*model.HorarioDisponible, error) {
	query := `
		SELECT id, fecha, hora_inicio, hora_fin, capacidad, reservas_actuales, disponible
		FROM horarios_disponibles
		WHERE id = $1
	`
	var horario model.HorarioDisponible
	err := r.db.GetContext(ctx, &horario, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("slot window", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot window: %w", err)
	}
	return &horario, nil
}

// ListCubriendo returns every window whose date matches t and whose
// hora_inicio <= t < hora_fin. A reservation may overlap several.
func (r *horarioRepository) ListCubriendo(ctx context.Context, t time.Time) ([]*model.HorarioDisponible, error) {
	query := `
		SELECT id, fecha, hora_inicio, hora_fin, capacidad, reservas_actuales, disponible
		FROM horarios_disponibles
		WHERE fecha = $1::date
		  AND hora_inicio::time <= $2::time
		  AND hora_fin::time > $2::time
		ORDER BY hora_inicio ASC
	`
	var horarios []*model.HorarioDisponible
	if err := r.db.SelectContext(ctx, &horarios, query, t, t); err != nil {
		return nil, fmt.Errorf("failed to list covering windows: %w", err)
	}
	return horarios, nil
}

func (r *horarioRepository) ListByFecha(ctx context.Context, fecha time.Time) ([]*model.HorarioDisponible, error) {
	query := `
		SELECT id, fecha, hora_inicio, hora_fin, capacidad, reservas_actuales, disponible
		FROM horarios_disponibles
		WHERE fecha = $1::date AND disponible = true
		ORDER BY hora_inicio ASC
	`
	var horarios []*model.HorarioDisponible
	if err := r.db.SelectContext(ctx, &horarios, query, fecha); err != nil {
		return nil, fmt.Errorf("failed to list windows for date: %w", err)
	}
	return horarios, nil
}

// Incrementar reserves one unit of capacity. The capacity check lives
// in the WHERE clause so the counter can never exceed capacidad even
// under concurrent bookings.
func (r *horarioRepository) Incrementar(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE horarios_disponibles
		SET reservas_actuales = reservas_actuales + 1
		WHERE id = $1 AND reservas_actuales < capacidad
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to increment slot counter: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Decrementar releases one unit, clamped at zero. Zero rows affected
// means the counter was already empty; callers log it and move on.
func (r *horarioRepository) Decrementar(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE horarios_disponibles
		SET reservas_actuales = reservas_actuales - 1
		WHERE id = $1 AND reservas_actuales > 0
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to decrement slot counter: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

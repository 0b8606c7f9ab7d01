package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
)

type notificacionRepository struct {
	db *sqlx.DB
}

func NewNotificacionRepository(db *sqlx.DB) repository.NotificacionRepository {
	return &notificacionRepository{db: db}
}

func (r *notificacionRepository) Create(ctx context.Context, n *model.Notificacion) error {
	query := `
		INSERT INTO notificaciones (
			id, cliente_id, empleado_id, reserva_id, tipo, titulo, mensaje,
			leida, fecha_creacion, fecha_lectura
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.ClienteID,
		n.EmpleadoID,
		n.ReservaID,
		n.Tipo,
		n.Titulo,
		n.Mensaje,
		n.Leida,
		n.FechaCreacion,
		n.FechaLectura,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificacionRepository) ListByCliente(ctx context.Context, clienteID uuid.UUID, soloNoLeidas bool) ([]*model.Notificacion, error) {
	query := `
		SELECT id, cliente_id, empleado_id, reserva_id, tipo, titulo, mensaje,
		       leida, fecha_creacion, fecha_lectura
		FROM notificaciones
		WHERE cliente_id = $1
	`
	if soloNoLeidas {
		query += " AND leida = false"
	}
	query += " ORDER BY fecha_creacion DESC"

	var notificaciones []*model.Notificacion
	if err := r.db.SelectContext(ctx, &notificaciones, query, clienteID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notificaciones, nil
}

func (r *notificacionRepository) MarcarLeida(ctx context.Context, id uuid.UUID, cuando time.Time) error {
	query := `
		UPDATE notificaciones
		SET leida = true, fecha_lectura = $1
		WHERE id = $2 AND leida = false
	`
	result, err := r.db.ExecContext(ctx, query, cuando, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("notification", nil)
	}
	return nil
}

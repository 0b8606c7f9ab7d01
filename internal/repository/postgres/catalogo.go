package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
)

// Catalog-side repositories: services, customers and staff. The
// reservation engine only reads these, except for loyalty points.

type servicioRepository struct {
	db *sqlx.DB
}

func NewServicioRepository(db *sqlx.DB) repository.ServicioRepository {
	return &servicioRepository{db: db}
}

func (r *servicioRepository) Get(ctx context.Context, id uuid.UUID) (*model.Servicio, error) {
	query := `
		SELECT id, nombre, descripcion, precio, duracion_minutos, puntos_otorgados, activo
		FROM servicios
		WHERE id = $1
	`
	var servicio model.Servicio
	err := r.db.GetContext(ctx, &servicio, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("service", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &servicio, nil
}

func (r *servicioRepository) ListActivos(ctx context.Context) ([]*model.Servicio, error) {
	query := `
		SELECT id, nombre, descripcion, precio, duracion_minutos, puntos_otorgados, activo
		FROM servicios
		WHERE activo = true
		ORDER BY nombre ASC
	`
	var servicios []*model.Servicio
	if err := r.db.SelectContext(ctx, &servicios, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return servicios, nil
}

type clienteRepository struct {
	db *sqlx.DB
}

func NewClienteRepository(db *sqlx.DB) repository.ClienteRepository {
	return &clienteRepository{db: db}
}

func (r *clienteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	query := `
		SELECT id, nombre, email, telefono, puntos, fecha_creacion
		FROM clientes
		WHERE id = $1
	`
	var cliente model.Cliente
	err := r.db.GetContext(ctx, &cliente, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("customer", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &cliente, nil
}

func (r *clienteRepository) AcumularPuntos(ctx context.Context, id uuid.UUID, puntos int) error {
	if puntos <= 0 {
		return nil
	}
	query := `
		UPDATE clientes
		SET puntos = puntos + $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, puntos, id)
	if err != nil {
		return fmt.Errorf("failed to add loyalty points: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("customer", nil)
	}
	return nil
}

type empleadoRepository struct {
	db *sqlx.DB
}

func NewEmpleadoRepository(db *sqlx.DB) repository.EmpleadoRepository {
	return &empleadoRepository{db: db}
}

func (r *empleadoRepository) Get(ctx context.Context, id uuid.UUID) (*model.Empleado, error) {
	query := `
		SELECT id, nombre, email, password_hash, activo
		FROM empleados
		WHERE id = $1
	`
	var empleado model.Empleado
	err := r.db.GetContext(ctx, &empleado, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("employee", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &empleado, nil
}

func (r *empleadoRepository) GetByEmail(ctx context.Context, email string) (*model.Empleado, error) {
	query := `
		SELECT id, nombre, email, password_hash, activo
		FROM empleados
		WHERE email = $1 AND activo = true
	`
	var empleado model.Empleado
	err := r.db.GetContext(ctx, &empleado, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("employee", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee by email: %w", err)
	}
	return &empleado, nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservaEstado is the lifecycle state of a reservation. The two-letter
// codes match what the platform has always stored.
type ReservaEstado string

const (
	EstadoPendiente  ReservaEstado = "PE"
	EstadoConfirmada ReservaEstado = "CO"
	EstadoEnProceso  ReservaEstado = "PR"
	EstadoCompletada ReservaEstado = "CM"
	EstadoCancelada  ReservaEstado = "CA"
	EstadoIncumplida ReservaEstado = "IN"
)

func (e ReservaEstado) String() string { return string(e) }

// EsTerminal reports whether no further transitions are allowed.
func (e ReservaEstado) EsTerminal() bool {
	switch e {
	case EstadoCompletada, EstadoCancelada, EstadoIncumplida:
		return true
	}
	return false
}

// Reserva is a booked appointment for a service at a specific time.
// It is never physically deleted; its lifecycle ends in a terminal state.
type Reserva struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	ClienteID           uuid.UUID     `db:"cliente_id" json:"cliente_id"`
	ServicioID          uuid.UUID     `db:"servicio_id" json:"servicio_id"`
	BahiaID             *uuid.UUID    `db:"bahia_id" json:"bahia_id,omitempty"`
	EmpleadoID          *uuid.UUID    `db:"empleado_id" json:"empleado_id,omitempty"`
	FechaHora           time.Time     `db:"fecha_hora" json:"fecha_hora"`
	Estado              ReservaEstado `db:"estado" json:"estado"`
	Notas               string        `db:"notas" json:"notas,omitempty"`
	PrecioFinal         float64       `db:"precio_final" json:"precio_final"`
	DescuentoAplicado   float64       `db:"descuento_aplicado" json:"descuento_aplicado"`
	ReferenciaPago      *string       `db:"referencia_pago" json:"referencia_pago,omitempty"`
	FechaConfirmacion   *time.Time    `db:"fecha_confirmacion" json:"fecha_confirmacion,omitempty"`
	FechaInicioServicio *time.Time    `db:"fecha_inicio_servicio" json:"fecha_inicio_servicio,omitempty"`
	SlotLiberado        bool          `db:"slot_liberado" json:"-"`
	FechaCreacion       time.Time     `db:"fecha_creacion" json:"fecha_creacion"`
	FechaActualizacion  time.Time     `db:"fecha_actualizacion" json:"fecha_actualizacion"`
}

// OcupaSlot reports whether the reservation still holds capacity in its
// slot window. Only non-started, non-terminal reservations do.
func (r *Reserva) OcupaSlot() bool {
	return r.Estado == EstadoPendiente || r.Estado == EstadoConfirmada
}

type CreateReservaRequest struct {
	ClienteID  uuid.UUID  `json:"cliente_id" binding:"required"`
	ServicioID uuid.UUID  `json:"servicio_id" binding:"required"`
	BahiaID    *uuid.UUID `json:"bahia_id"`
	FechaHora  time.Time  `json:"fecha_hora" binding:"required"`
	Notas      string     `json:"notas" binding:"max=1000"`
}

type ReservaFilters struct {
	ClienteID  uuid.UUID
	EmpleadoID uuid.UUID
	Estado     ReservaEstado
	Desde      time.Time
	Hasta      time.Time
}

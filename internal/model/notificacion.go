package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificacionTipo tags what a notification is about.
type NotificacionTipo string

const (
	NotifReservaCreada      NotificacionTipo = "RC"
	NotifReservaConfirmada  NotificacionTipo = "RF"
	NotifReservaCancelada   NotificacionTipo = "RA"
	NotifReservaIncumplida  NotificacionTipo = "RI"
	NotifServicioIniciado   NotificacionTipo = "SI"
	NotifServicioFinalizado NotificacionTipo = "SF"
	NotifServicioAsignado   NotificacionTipo = "SA"
	NotifPuntosAcumulados   NotificacionTipo = "PA"
)

// Notificacion is an append-only log entry created as a side effect of
// a reservation transition. The engine only ever creates them; reads
// and the leida flag belong to the customer-facing API.
type Notificacion struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ClienteID     *uuid.UUID       `db:"cliente_id" json:"cliente_id,omitempty"`
	EmpleadoID    *uuid.UUID       `db:"empleado_id" json:"empleado_id,omitempty"`
	ReservaID     *uuid.UUID       `db:"reserva_id" json:"reserva_id,omitempty"`
	Tipo          NotificacionTipo `db:"tipo" json:"tipo"`
	Titulo        string           `db:"titulo" json:"titulo"`
	Mensaje       string           `db:"mensaje" json:"mensaje"`
	Leida         bool             `db:"leida" json:"leida"`
	FechaCreacion time.Time        `db:"fecha_creacion" json:"fecha_creacion"`
	FechaLectura  *time.Time       `db:"fecha_lectura" json:"fecha_lectura,omitempty"`
}

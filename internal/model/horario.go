package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HorarioDisponible is a bookable window of a given day with a capacity
// ceiling and a counter of reservations currently holding it.
//
// Invariant: 0 <= ReservasActuales <= Capacidad.
type HorarioDisponible struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Fecha            time.Time `db:"fecha" json:"fecha"`
	HoraInicio       time.Time `db:"hora_inicio" json:"hora_inicio"`
	HoraFin          time.Time `db:"hora_fin" json:"hora_fin"`
	Capacidad        int       `db:"capacidad" json:"capacidad"`
	ReservasActuales int       `db:"reservas_actuales" json:"reservas_actuales"`
	Disponible       bool      `db:"disponible" json:"disponible"`
}

// Lleno reports whether the window has no capacity left.
func (h *HorarioDisponible) Lleno() bool {
	return h.ReservasActuales >= h.Capacidad
}

// Cubre reports whether the window covers the given instant: same day,
// hora_inicio <= t < hora_fin. A reservation may be covered by more
// than one window record.
func (h *HorarioDisponible) Cubre(t time.Time) bool {
	if !sameDate(h.Fecha, t) {
		return false
	}
	tm := minutesOfDay(t)
	return minutesOfDay(h.HoraInicio) <= tm && tm < minutesOfDay(h.HoraFin)
}

func (h *HorarioDisponible) Ventana() string {
	return fmt.Sprintf("%s %s-%s",
		h.Fecha.Format("2006-01-02"),
		h.HoraInicio.Format("15:04"),
		h.HoraFin.Format("15:04"))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

package model

import (
	"fmt"
	"time"

	"github.com/autolavados/booking-api/pkg/errors"
)

// Evento is a trigger that may move a reservation along a legal edge of
// its state chart. Events carry whether they were fired by a person or
// by a sweep, which ends up in the audit trail and in notifications.
type Evento string

const (
	EventoPagoConfirmado     Evento = "pago_confirmado"
	EventoPagoRechazado      Evento = "pago_rechazado"
	EventoCancelacionManual  Evento = "cancelacion_manual"
	EventoCancelacionSinPago Evento = "cancelacion_sin_pago"
	EventoCancelacionVencida Evento = "cancelacion_vencida"
	EventoIncumplimiento     Evento = "incumplimiento"
	EventoInicioManual       Evento = "inicio_manual"
	EventoInicioAutomatico   Evento = "inicio_automatico"
	EventoFinManual          Evento = "fin_manual"
	EventoFinAutomatico      Evento = "fin_automatico"
)

// Edge describes one legal transition of the reservation state chart.
type Edge struct {
	From       []ReservaEstado
	To         ReservaEstado
	Automatica bool
}

// edges is the single authoritative transition table. Anything not in
// here is an illegal transition, no matter who asks.
var edges = map[Evento]Edge{
	EventoPagoConfirmado:     {From: []ReservaEstado{EstadoPendiente}, To: EstadoConfirmada},
	EventoPagoRechazado:      {From: []ReservaEstado{EstadoPendiente}, To: EstadoCancelada},
	EventoCancelacionManual:  {From: []ReservaEstado{EstadoPendiente, EstadoConfirmada}, To: EstadoCancelada},
	EventoCancelacionSinPago: {From: []ReservaEstado{EstadoPendiente}, To: EstadoCancelada, Automatica: true},
	EventoCancelacionVencida: {From: []ReservaEstado{EstadoPendiente, EstadoConfirmada}, To: EstadoCancelada, Automatica: true},
	EventoIncumplimiento:     {From: []ReservaEstado{EstadoPendiente, EstadoConfirmada}, To: EstadoIncumplida, Automatica: true},
	EventoInicioManual:       {From: []ReservaEstado{EstadoConfirmada}, To: EstadoEnProceso},
	EventoInicioAutomatico:   {From: []ReservaEstado{EstadoConfirmada}, To: EstadoEnProceso, Automatica: true},
	EventoFinManual:          {From: []ReservaEstado{EstadoEnProceso}, To: EstadoCompletada},
	EventoFinAutomatico:      {From: []ReservaEstado{EstadoEnProceso}, To: EstadoCompletada, Automatica: true},
}

// EdgeFor returns the edge a given event drives, for callers that need
// the expected source states before attempting a write.
func EdgeFor(ev Evento) (Edge, bool) {
	e, ok := edges[ev]
	return e, ok
}

// Eventos lists every known event, in no particular order.
func Eventos() []Evento {
	out := make([]Evento, 0, len(edges))
	for ev := range edges {
		out = append(out, ev)
	}
	return out
}

// AuditEntry is one structured line of a reservation's append-only
// audit trail.
type AuditEntry struct {
	Fecha      time.Time
	Evento     Evento
	Desde      ReservaEstado
	Hacia      ReservaEstado
	Automatica bool
	Detalle    string
}

func (a AuditEntry) String() string {
	origen := "manual"
	if a.Automatica {
		origen = "automático"
	}
	s := fmt.Sprintf("[%s] %s: %s -> %s (%s)",
		a.Fecha.Format(time.RFC3339), a.Evento, a.Desde, a.Hacia, origen)
	if a.Detalle != "" {
		s += ": " + a.Detalle
	}
	return s
}

// Apply moves the reservation along the edge the event drives. It
// mutates estado, stamps fecha_confirmacion / fecha_inicio_servicio on
// the edges that own them, bumps fecha_actualizacion and appends an
// audit entry to notas. The caller persists the result with an
// optimistic estado guard.
func Apply(r *Reserva, ev Evento, now time.Time, detalle string) (AuditEntry, error) {
	edge, ok := edges[ev]
	if !ok {
		return AuditEntry{}, errors.IllegalTransition(string(r.Estado), string(ev))
	}

	legal := false
	for _, from := range edge.From {
		if r.Estado == from {
			legal = true
			break
		}
	}
	if !legal {
		return AuditEntry{}, errors.IllegalTransition(string(r.Estado), string(edge.To))
	}

	entry := AuditEntry{
		Fecha:      now,
		Evento:     ev,
		Desde:      r.Estado,
		Hacia:      edge.To,
		Automatica: edge.Automatica,
		Detalle:    detalle,
	}

	r.Estado = edge.To
	r.FechaActualizacion = now

	switch edge.To {
	case EstadoConfirmada:
		if r.FechaConfirmacion == nil {
			t := now
			r.FechaConfirmacion = &t
		}
	case EstadoEnProceso:
		// set exactly once
		if r.FechaInicioServicio == nil {
			t := now
			r.FechaInicioServicio = &t
		}
	}

	if r.Notas != "" {
		r.Notas += "\n"
	}
	r.Notas += entry.String()

	return entry, nil
}

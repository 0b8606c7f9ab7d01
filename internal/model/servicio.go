package model

import (
	"time"

	"github.com/google/uuid"
)

// Servicio is a catalog entry: a wash type with a price and a duration.
// The reservation engine treats it as read-only input; the duration
// drives the auto-completion deadline.
type Servicio struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Nombre          string    `db:"nombre" json:"nombre"`
	Descripcion     string    `db:"descripcion" json:"descripcion,omitempty"`
	Precio          float64   `db:"precio" json:"precio"`
	DuracionMinutos int       `db:"duracion_minutos" json:"duracion_minutos"`
	PuntosOtorgados int       `db:"puntos_otorgados" json:"puntos_otorgados"`
	Activo          bool      `db:"activo" json:"activo"`
}

// Duracion returns the catalog duration as a time.Duration.
func (s *Servicio) Duracion() time.Duration {
	return time.Duration(s.DuracionMinutos) * time.Minute
}

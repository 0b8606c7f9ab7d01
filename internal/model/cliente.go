package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is a registered customer with a loyalty-point balance.
type Cliente struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Nombre        string    `db:"nombre" json:"nombre"`
	Email         string    `db:"email" json:"email"`
	Telefono      string    `db:"telefono" json:"telefono,omitempty"`
	Puntos        int       `db:"puntos" json:"puntos"`
	FechaCreacion time.Time `db:"fecha_creacion" json:"fecha_creacion"`
}

// Empleado is a staff member who can be assigned to reservations and
// can log in to drive manual transitions.
type Empleado struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Nombre       string    `db:"nombre" json:"nombre"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Activo       bool      `db:"activo" json:"activo"`
}

// Bahia is a physical bay where a service is performed.
type Bahia struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Nombre      string    `db:"nombre" json:"nombre"`
	Descripcion string    `db:"descripcion" json:"descripcion,omitempty"`
	Activo      bool      `db:"activo" json:"activo"`
}

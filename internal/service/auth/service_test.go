package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/model"
	apperrors "github.com/autolavados/booking-api/pkg/errors"
)

type memEmpleados struct {
	porEmail map[string]*model.Empleado
}

func (m *memEmpleados) Get(ctx context.Context, id uuid.UUID) (*model.Empleado, error) {
	for _, e := range m.porEmail {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperrors.NewNotFound("empleado", nil)
}

func (m *memEmpleados) GetByEmail(ctx context.Context, email string) (*model.Empleado, error) {
	e, ok := m.porEmail[email]
	if !ok {
		return nil, apperrors.NewNotFound("empleado", nil)
	}
	return e, nil
}

func newAuthService(t *testing.T, activo bool) (*Service, *model.Empleado) {
	t.Helper()

	hash, err := HashPassword("secreto123")
	require.NoError(t, err)

	empleado := &model.Empleado{
		ID:           uuid.New(),
		Nombre:       "Empleado Prueba",
		Email:        "empleado@example.com",
		PasswordHash: hash,
		Activo:       activo,
	}
	repo := &memEmpleados{porEmail: map[string]*model.Empleado{empleado.Email: empleado}}
	svc := NewService(repo, config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
	return svc, empleado
}

func TestLoginAndValidate(t *testing.T) {
	svc, empleado := newAuthService(t, true)
	ctx := context.Background()

	resp, err := svc.Login(ctx, empleado.Email, "secreto123")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, empleado.ID, claims.EmpleadoID)
	assert.Equal(t, empleado.Email, claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, empleado := newAuthService(t, true)

	_, err := svc.Login(context.Background(), empleado.Email, "equivocada")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t, true)

	_, err := svc.Login(context.Background(), "nadie@example.com", "secreto123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveEmpleado(t *testing.T) {
	svc, empleado := newAuthService(t, false)

	_, err := svc.Login(context.Background(), empleado.Email, "secreto123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc, empleado := newAuthService(t, true)

	resp, err := svc.Login(context.Background(), empleado.Email, "secreto123")
	require.NoError(t, err)

	otro := NewService(nil, config.JWTConfig{Secret: "otro-secreto", ExpiryHours: 1})
	_, err = otro.ValidateToken(resp.Token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc, empleado := newAuthService(t, true)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), empleado.Email, "secreto123")
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.Token)
	assert.Error(t, err)
}

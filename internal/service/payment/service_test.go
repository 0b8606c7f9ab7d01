package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/pkg/logger"
)

func TestStatusHelpers(t *testing.T) {
	assert.True(t, Approved(StatusApproved))
	assert.False(t, Approved(StatusPending))
	assert.False(t, Approved(StatusRejected))

	assert.True(t, Final(StatusApproved))
	assert.True(t, Final(StatusRejected))
	assert.True(t, Final(StatusVoided))
	assert.True(t, Final(StatusError))
	assert.False(t, Final(StatusPending))
	assert.False(t, Final("SOMETHING_ELSE"))
}

func TestInitiatePaymentSandbox(t *testing.T) {
	svc := NewService(config.PaymentConfig{Sandbox: true}, logger.NewLogger(nil))

	reserva := &model.Reserva{ID: uuid.New(), PrecioFinal: 45000}
	cliente := &model.Cliente{ID: uuid.New(), Email: "c@example.com"}

	ref, err := svc.InitiatePayment(context.Background(), reserva, cliente)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "RES-"))

	otra, err := svc.InitiatePayment(context.Background(), reserva, cliente)
	require.NoError(t, err)
	assert.NotEqual(t, ref, otra, "references must be unique per attempt")
}

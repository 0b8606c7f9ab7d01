package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/config"
	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/pkg/circuitbreaker"
	"github.com/autolavados/booking-api/pkg/logger"
)

// Gateway statuses as the collaborator reports them.
const (
	StatusApproved = "APPROVED"
	StatusPending  = "PENDING"
	StatusRejected = "REJECTED"
	StatusVoided   = "VOIDED"
	StatusError    = "ERROR"
)

// Service is the payment-collaborator boundary: the core initiates a
// payment and stores the returned reference; the gateway later calls
// back with a status that maps onto the state machine.
type Service interface {
	InitiatePayment(ctx context.Context, reserva *model.Reserva, cliente *model.Cliente) (string, error)
}

type service struct {
	client  *http.Client
	cb      *circuitbreaker.CircuitBreaker
	baseURL string
	apiKey  string
	sandbox bool
	logger  *logger.Logger
}

func NewService(cfg config.PaymentConfig, logger *logger.Logger) Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "payment-gateway",
		MaxFailures: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
	})
	return &service{
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		sandbox: cfg.Sandbox,
		logger:  logger,
	}
}

type initiateRequest struct {
	Reference   string  `json:"reference"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Email       string  `json:"customer_email"`
}

type initiateResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// InitiatePayment registers the charge with the gateway and returns the
// transaction reference the webhook will later carry. In sandbox mode
// the gateway is not called at all; a synthetic reference is issued so
// the rest of the flow can be exercised end to end.
func (s *service) InitiatePayment(ctx context.Context, reserva *model.Reserva, cliente *model.Cliente) (string, error) {
	reference := fmt.Sprintf("RES-%s-%s", reserva.ID.String()[:8], uuid.New().String()[:8])

	if s.sandbox {
		s.logger.Info("sandbox: skipping gateway call",
			"reserva_id", reserva.ID.String(), "reference", reference)
		return reference, nil
	}

	body, err := json.Marshal(initiateRequest{
		Reference:   reference,
		Amount:      reserva.PrecioFinal,
		Currency:    "COP",
		Description: fmt.Sprintf("Reserva %s", reserva.ID),
		Email:       cliente.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment request: %w", err)
	}

	var out initiateResponse
	err = s.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/transactions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read gateway response: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, raw)
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return "", err
	}

	if out.Reference != "" {
		reference = out.Reference
	}
	return reference, nil
}

// Approved reports whether a gateway status confirms the payment.
// PENDING is neither approved nor final; callers ignore it.
func Approved(status string) bool {
	return status == StatusApproved
}

// Final reports whether a gateway status ends the payment attempt.
func Final(status string) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusVoided, StatusError:
		return true
	}
	return false
}

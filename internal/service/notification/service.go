package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/email"
	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/repository"
	"github.com/autolavados/booking-api/pkg/logger"
	"github.com/autolavados/booking-api/pkg/messaging"
	"github.com/autolavados/booking-api/pkg/metrics"
)

const eventsChannel = "notificaciones"

// Service emits notifications as a side effect of reservation
// transitions. The persisted row is the source of truth; the broker
// publish and the email leg are best-effort and never propagate
// failures back to the transition that triggered them.
type Service interface {
	Notify(ctx context.Context, n *model.Notificacion) error
}

type service struct {
	repo     repository.NotificacionRepository
	clientes repository.ClienteRepository
	emailSvc email.Service
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repo repository.NotificacionRepository,
	clientes repository.ClienteRepository,
	emailSvc email.Service,
	broker messaging.Broker,
	logger *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:     repo,
		clientes: clientes,
		emailSvc: emailSvc,
		broker:   broker,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *service) Notify(ctx context.Context, n *model.Notificacion) error {
	n.ID = uuid.New()
	n.Leida = false
	n.FechaCreacion = s.now()

	if err := s.repo.Create(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.NotificationsFailed.Inc()
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.NotificationsEmitted.WithLabelValues(string(n.Tipo)).Inc()
	}

	// Fan-out legs run detached from the caller; a slow SMTP server must
	// never hold up a sweep batch.
	go s.fanOut(n)

	return nil
}

func (s *service) fanOut(n *model.Notificacion) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.broker != nil {
		msg := messaging.Message{Type: string(n.Tipo), Payload: n}
		if err := s.broker.Publish(ctx, eventsChannel, msg); err != nil {
			s.logger.Error(err, "failed to publish notification",
				"notification_id", n.ID.String())
			if s.metrics != nil {
				s.metrics.NotificationsFailed.Inc()
			}
		}
	}

	if s.emailSvc != nil && n.ClienteID != nil {
		cliente, err := s.clientes.Get(ctx, *n.ClienteID)
		if err != nil {
			s.logger.Error(err, "failed to load customer for email",
				"notification_id", n.ID.String())
			return
		}
		if cliente.Email == "" {
			return
		}
		if err := s.emailSvc.SendCustom(ctx, cliente.Email, n.Titulo, n.Mensaje); err != nil {
			s.logger.Error(err, "failed to email notification",
				"notification_id", n.ID.String())
			if s.metrics != nil {
				s.metrics.NotificationsFailed.Inc()
			}
		}
	}
}

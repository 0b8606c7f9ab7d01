package pago

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/handler"
	"github.com/autolavados/booking-api/internal/repository"
	"github.com/autolavados/booking-api/internal/service/payment"
	"github.com/autolavados/booking-api/internal/service/reserva"
	"github.com/autolavados/booking-api/pkg/logger"
)

type Handler struct {
	reservaSvc *reserva.Service
	paymentSvc payment.Service
	clientes   repository.ClienteRepository
	logger     *logger.Logger
}

func NewHandler(reservaSvc *reserva.Service, paymentSvc payment.Service,
	clientes repository.ClienteRepository, logger *logger.Logger) *Handler {
	return &Handler{
		reservaSvc: reservaSvc,
		paymentSvc: paymentSvc,
		clientes:   clientes,
		logger:     logger,
	}
}

// IniciarPago registers the charge with the gateway and stores the
// returned reference on the reservation so the webhook can find it.
func (h *Handler) IniciarPago(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	res, err := h.reservaSvc.GetReserva(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	cliente, err := h.clientes.Get(c.Request.Context(), res.ClienteID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	referencia, err := h.paymentSvc.InitiatePayment(c.Request.Context(), res, cliente)
	if err != nil {
		h.logger.Error(err, "failed to initiate payment", "reserva_id", id.String())
		c.JSON(http.StatusBadGateway, handler.NewErrorResponse("payment gateway unavailable"))
		return
	}

	if err := h.reservaSvc.SetReferenciaPago(c.Request.Context(), id, referencia); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"referencia": referencia}))
}

type webhookPayload struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// Webhook receives the gateway callback. Approved confirms the pending
// reservation, any other final status cancels it, PENDING is ignored.
// The gateway retries on non-2xx, so unknown references return 200.
func (h *Handler) Webhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if !payment.Final(payload.Status) {
		c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"processed": false}))
		return
	}

	res, err := h.reservaSvc.HandlePaymentStatus(c.Request.Context(), payload.Reference, payment.Approved(payload.Status))
	if err != nil {
		h.logger.Warn("webhook not applied",
			"reference", payload.Reference, "status", payload.Status, "error", err.Error())
		c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"processed": false}))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"processed": true,
		"estado":    res.Estado,
	}))
}

package reserva

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/handler"
	"github.com/autolavados/booking-api/internal/middleware"
	"github.com/autolavados/booking-api/internal/model"
	"github.com/autolavados/booking-api/internal/service/reserva"
)

type Handler struct {
	service *reserva.Service
}

func NewHandler(service *reserva.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateReserva(c *gin.Context) {
	var req model.CreateReservaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	res, err := h.service.CreateReserva(c.Request.Context(), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(res))
}

func (h *Handler) GetReserva(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	res, err := h.service.GetReserva(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}

func (h *Handler) ListReservas(c *gin.Context) {
	filters := &model.ReservaFilters{}

	if raw := c.Query("cliente_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid cliente ID"))
			return
		}
		filters.ClienteID = id
	}
	if raw := c.Query("empleado_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid empleado ID"))
			return
		}
		filters.EmpleadoID = id
	}
	if raw := c.Query("estado"); raw != "" {
		filters.Estado = model.ReservaEstado(raw)
	}
	if raw := c.Query("desde"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid desde timestamp"))
			return
		}
		filters.Desde = t
	}
	if raw := c.Query("hasta"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid hasta timestamp"))
			return
		}
		filters.Hasta = t
	}

	reservas, err := h.service.ListReservas(c.Request.Context(), filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(reservas))
}

type cancelRequest struct {
	Motivo string `json:"motivo" binding:"max=500"`
}

// CancelarReserva is the client-facing cancellation. It works from
// either PENDIENTE or CONFIRMADA and needs no staff token.
func (h *Handler) CancelarReserva(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detalle := "Cancelación solicitada por el cliente."
	if req.Motivo != "" {
		detalle = "Cancelación solicitada por el cliente: " + req.Motivo
	}

	res, err := h.service.TransitionByID(c.Request.Context(), id, model.EventoCancelacionManual, detalle, nil)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}

// IniciarServicio moves a confirmed reservation into EN_PROCESO and
// records the acting staff member on it.
func (h *Handler) IniciarServicio(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	empleadoID, ok := middleware.EmpleadoID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid empleado ID"))
		return
	}

	res, err := h.service.TransitionByID(c.Request.Context(), id, model.EventoInicioManual,
		"Servicio iniciado por el empleado.", &empleadoID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}

// CompletarServicio finishes an in-progress reservation, which releases
// the slot and awards loyalty points.
func (h *Handler) CompletarServicio(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid reservation ID"))
		return
	}

	empleadoID, ok := middleware.EmpleadoID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid empleado ID"))
		return
	}

	res, err := h.service.TransitionByID(c.Request.Context(), id, model.EventoFinManual,
		"Servicio completado por el empleado.", &empleadoID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}

package disponibilidad

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autolavados/booking-api/internal/handler"
	"github.com/autolavados/booking-api/internal/service/reserva"
)

type Handler struct {
	service *reserva.Service
}

func NewHandler(service *reserva.Service) *Handler {
	return &Handler{service: service}
}

// GetDisponibilidad lists the slot windows of a date with their
// remaining capacity, so clients can pick a bookable time.
func (h *Handler) GetDisponibilidad(c *gin.Context) {
	raw := c.Query("fecha")
	if raw == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("fecha query parameter is required"))
		return
	}

	fecha, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid fecha, expected YYYY-MM-DD"))
		return
	}

	horarios, err := h.service.Disponibilidad(c.Request.Context(), fecha)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(horarios))
}

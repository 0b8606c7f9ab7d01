package notificacion

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/handler"
	"github.com/autolavados/booking-api/internal/repository"
)

type Handler struct {
	notificaciones repository.NotificacionRepository
}

func NewHandler(notificaciones repository.NotificacionRepository) *Handler {
	return &Handler{notificaciones: notificaciones}
}

func (h *Handler) ListNotificaciones(c *gin.Context) {
	clienteID, err := uuid.Parse(c.Query("cliente_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid cliente ID"))
		return
	}

	soloNoLeidas := c.Query("no_leidas") == "true"

	list, err := h.notificaciones.ListByCliente(c.Request.Context(), clienteID, soloNoLeidas)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) MarcarLeida(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.notificaciones.MarcarLeida(c.Request.Context(), id, time.Now()); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"leida": true}))
}

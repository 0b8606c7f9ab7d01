package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/autolavados/booking-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// WriteError maps application error codes onto HTTP statuses. Anything
// unclassified is a 500 with a generic message so internals never leak.
func WriteError(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrBadRequest):
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrIllegalTransition):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrStaleTransition):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))
	case apperrors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
	}
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/autolavados/booking-api/internal/handler"
	"github.com/autolavados/booking-api/internal/service/auth"
)

const (
	ContextEmpleadoID    = "empleado_id"
	ContextEmpleadoEmail = "empleado_email"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate verifies the bearer token and sets staff info in context.
// Manual transition endpoints require it; client booking does not.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextEmpleadoID, claims.EmpleadoID.String())
		c.Set(ContextEmpleadoEmail, claims.Email)
		c.Next()
	}
}

// EmpleadoID extracts the authenticated staff ID from the context.
func EmpleadoID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(ContextEmpleadoID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

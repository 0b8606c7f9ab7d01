package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/autolavados/booking-api/internal/handler"
	authhandler "github.com/autolavados/booking-api/internal/handler/auth"
	"github.com/autolavados/booking-api/internal/handler/disponibilidad"
	"github.com/autolavados/booking-api/internal/handler/notificacion"
	"github.com/autolavados/booking-api/internal/handler/pago"
	reservahandler "github.com/autolavados/booking-api/internal/handler/reserva"
	"github.com/autolavados/booking-api/internal/middleware"
)

type Router struct {
	engine          *gin.Engine
	auth            *middleware.AuthMiddleware
	healthH         *handler.HealthHandler
	authH           *authhandler.Handler
	reservaH        *reservahandler.Handler
	pagoH           *pago.Handler
	notificacionH   *notificacion.Handler
	disponibilidadH *disponibilidad.Handler
}

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *handler.HealthHandler,
	authH *authhandler.Handler,
	reservaH *reservahandler.Handler,
	pagoH *pago.Handler,
	notificacionH *notificacion.Handler,
	disponibilidadH *disponibilidad.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:          engine,
		auth:            auth,
		healthH:         healthH,
		authH:           authH,
		reservaH:        reservaH,
		pagoH:           pagoH,
		notificacionH:   notificacionH,
		disponibilidadH: disponibilidadH,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.healthH.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	// Public routes: booking, availability, payment callbacks and the
	// staff login itself need no token.
	api.POST("/auth/login", r.authH.Login)
	api.GET("/disponibilidad", r.disponibilidadH.GetDisponibilidad)

	reservas := api.Group("/reservas")
	{
		reservas.POST("", r.reservaH.CreateReserva)
		reservas.GET("", r.reservaH.ListReservas)
		reservas.GET("/:id", r.reservaH.GetReserva)
		reservas.POST("/:id/cancelar", r.reservaH.CancelarReserva)
		reservas.POST("/:id/pago", r.pagoH.IniciarPago)
	}

	api.POST("/pagos/webhook", r.pagoH.Webhook)

	api.GET("/notificaciones", r.notificacionH.ListNotificaciones)
	api.POST("/notificaciones/:id/leer", r.notificacionH.MarcarLeida)

	// Staff-only transitions.
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	{
		protected.POST("/reservas/:id/iniciar", r.reservaH.IniciarServicio)
		protected.POST("/reservas/:id/completar", r.reservaH.CompletarServicio)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

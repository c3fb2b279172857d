// Package httpapi — HTTP/JSON фасад ядра бронирования на gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/reservation-platform/internal/reservation"
)

type Server struct {
	engine  *reservation.Engine
	query   *reservation.Query
	catalog *reservation.Catalog
	log     logrus.FieldLogger
	verify  TokenVerifier
	limiter *UserLimiter
}

func NewServer(
	engine *reservation.Engine,
	query *reservation.Query,
	catalog *reservation.Catalog,
	verifier TokenVerifier,
	limiter *UserLimiter,
	log logrus.FieldLogger,
) *Server {
	return &Server{
		engine:  engine,
		query:   query,
		catalog: catalog,
		log:     log,
		verify:  verifier,
		limiter: limiter,
	}
}

// Router собирает маршруты /v1. Мутирующие маршруты ограничены по частоте.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.GET("/resources/:id/availability", s.getAvailability)

	secured := v1.Group("")
	secured.Use(JWTAuth(s.verify))
	{
		secured.GET("/bookings", s.listBookings)
		secured.GET("/bookings/stats", s.bookingStats)
		secured.GET("/bookings/:id", s.getBooking)
		secured.GET("/resources", s.myResources)
		secured.GET("/resources/:id/schedules", s.resourceSchedules)

		mutating := secured.Group("")
		if s.limiter != nil {
			mutating.Use(RateLimit(s.limiter))
		}
		mutating.POST("/bookings", s.createBooking)
		mutating.PATCH("/bookings/:id", s.updateBooking)
		mutating.POST("/bookings/:id/confirm", s.confirmBooking)
		mutating.POST("/bookings/:id/cancel", s.cancelBooking)
		mutating.POST("/bookings/:id/complete", s.completeBooking)
		mutating.POST("/resources/:id/availability", s.publishAvailability)
		mutating.DELETE("/resources/:id/availability", s.unpublishAvailability)
		mutating.POST("/resources", s.registerResource)
		mutating.PUT("/resources/:id/status", s.setResourceStatus)
	}
	return r
}

// Package server exposes the HTTP API: payment initiation and lifecycle,
// gateway webhooks, flight search and booking, geo lookups, and operational
// endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	bookingservice "github.com/globetrotter-hq/globetrotter/internal/booking/service"
	"github.com/globetrotter-hq/globetrotter/internal/config"
	"github.com/globetrotter-hq/globetrotter/internal/flights"
	"github.com/globetrotter-hq/globetrotter/internal/maps"
	"github.com/globetrotter-hq/globetrotter/internal/observability/logger"
	obsmetrics "github.com/globetrotter-hq/globetrotter/internal/observability/metrics"
	paymentservice "github.com/globetrotter-hq/globetrotter/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware())
	engine.Use(gin.Recovery())
	engine.Use(ErrorHandlingMiddleware())
	return engine
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
	BookingSvc *bookingservice.Service
	FlightsSvc *flights.Service
	MapsSvc    *maps.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	paymentSvc *paymentservice.Service
	bookingSvc *bookingservice.Service
	flightsSvc *flights.Service
	mapsSvc    *maps.Service
	metrics    *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		paymentSvc: p.PaymentSvc,
		bookingSvc: p.BookingSvc,
		flightsSvc: p.FlightsSvc,
		mapsSvc:    p.MapsSvc,
		metrics:    p.Metrics,
	}
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.engine.POST("/webhooks/payments/:gateway", s.handlePaymentWebhook)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/payments", s.handleInitiatePayment)
		v1.GET("/payments/:payment_id", s.handleGetPayment)
		v1.POST("/payments/:payment_id/refund-requests", s.handleRequestRefund)
		v1.POST("/refund-requests/:refund_id/:action", s.handleProcessRefund)

		v1.GET("/bookings/:booking_id", s.handleGetBooking)

		v1.GET("/flights/search", s.handleFlightSearch)
		v1.GET("/flights/offers/:offer_id/price", s.handleFlightPrice)
		v1.POST("/flights/book", s.handleFlightBook)
		v1.GET("/flights/pnr/:locator", s.handleGetPNR)

		v1.GET("/maps/geocode", s.handleGeocode)
		v1.GET("/maps/reverse-geocode", s.handleReverseGeocode)
		v1.GET("/maps/places", s.handlePlaces)
		v1.GET("/maps/distance-matrix", s.handleDistanceMatrix)
		v1.GET("/maps/static-map", s.handleStaticMap)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

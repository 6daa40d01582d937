// Package router assembles the gin engine serving the tutoring API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
	"github.com/noah-isme/tutoring-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/requestid"
)

// Options carries everything the engine needs.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           *service.AuthService

	Availability  *handler.AvailabilityHandler
	Settlement    *handler.SettlementHandler
	Observability *handler.MetricsHandler
}

// New builds the engine with the shared middleware chain and every API route.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(opts.Metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	api := r.Group(opts.APIPrefix)

	if opts.Observability != nil {
		api.GET("/health", opts.Observability.Health)
		api.GET("/ready", opts.Observability.Ready)
		api.GET("/metrics", opts.Observability.Prometheus)
	}
	if opts.EnableDocs {
		api.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(opts.Auth))

	admin := internalmiddleware.RequireRoles(models.RoleAdmin)
	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	if h := opts.Availability; h != nil {
		secured.PUT("/teachers/availability", staff, h.Set)
		secured.GET("/teachers/:id/availability", h.Get)
		secured.GET("/teachers/:id/availability/range", h.Range)
		secured.GET("/teachers/:id/timetable", h.Timetable)
	}

	if h := opts.Settlement; h != nil {
		settlements := secured.Group("/settlements")
		settlements.POST("", admin, h.Open)
		settlements.POST("/payout-runs", admin, h.RunPayouts)
		settlements.GET("/statement", admin, h.Statement)
		settlements.GET("/:bookingId", staff, h.Get)
		settlements.POST("/:bookingId/events", admin, h.ApplyEvent)
		settlements.PUT("/:bookingId/price", admin, h.SetPrice)
	}

	if opts.Observability != nil {
		secured.GET("/metrics/snapshot", admin, opts.Observability.Snapshot)
	}

	return r
}

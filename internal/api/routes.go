// Package api wires the HTTP surface: the report and vote REST API, alert
// settings, the live report stream, internal triggers and /metrics.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"geosafe/internal/api/handlers"
	"geosafe/internal/api/middleware"
	"geosafe/internal/config"
	"geosafe/internal/metrics"
)

type Router struct {
	reportHandler       *handlers.ReportHandler
	subscriptionHandler *handlers.SubscriptionHandler
	triggerHandler      *handlers.TriggerHandler
	stream              http.Handler
	gatherer            prometheus.Gatherer
	metrics             *metrics.Metrics
	cfg                 *config.Config
	logger              *zap.Logger
}

func NewRouter(
	reportHandler *handlers.ReportHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	triggerHandler *handlers.TriggerHandler,
	stream http.Handler,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		reportHandler:       reportHandler,
		subscriptionHandler: subscriptionHandler,
		triggerHandler:      triggerHandler,
		stream:              stream,
		gatherer:            gatherer,
		metrics:             m,
		cfg:                 cfg,
		logger:              logger,
	}
}

func (r *Router) Setup(engine *gin.Engine) error {
	voteLimit, err := middleware.RateLimit("votes", r.cfg.RateLimit.Votes, r.logger)
	if err != nil {
		return fmt.Errorf("vote rate limit: %w", err)
	}
	reportLimit, err := middleware.RateLimit("reports", r.cfg.RateLimit.Reports, r.logger)
	if err != nil {
		return fmt.Errorf("report rate limit: %w", err)
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestLogger(r.logger),
		r.metrics.GinMiddleware(),
		cors.New(corsConfig(r.cfg.Server.AllowedOrigins)),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if r.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/api/v1")
	v1.Use(middleware.Authenticate([]byte(r.cfg.Auth.JWTSecret), r.cfg.Auth.Issuer))
	{
		reports := v1.Group("/reports")
		{
			reports.GET("", r.reportHandler.List)
			reports.POST("", reportLimit, r.reportHandler.Create)
			reports.GET("/stream", gin.WrapH(r.stream))
			reports.GET("/:id", r.reportHandler.Get)

			// Voting requires a signed-in user.
			reports.POST("/:id/votes", middleware.RequireUser(), voteLimit, r.reportHandler.CastVote)
			reports.GET("/:id/votes/me", middleware.RequireUser(), r.reportHandler.MyVote)

			admin := reports.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/:id/verify", r.reportHandler.Verify)
				admin.DELETE("/:id", r.reportHandler.Delete)
			}
		}

		me := v1.Group("/me")
		me.Use(middleware.RequireUser())
		{
			me.GET("/alert-settings", r.subscriptionHandler.Get)
			me.PUT("/alert-settings", r.subscriptionHandler.Update)
		}
	}

	internal := engine.Group("/internal")
	internal.Use(middleware.RequireTriggerKey(r.cfg.Server.TriggerKey))
	{
		internal.POST("/triggers/report-written", r.triggerHandler.ReportWritten)
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

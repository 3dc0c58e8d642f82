package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all API routes on the router.
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		rules := api.Group("/rules")
		{
			rules.GET("", h.GetRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
			rules.POST("/:id/enable", h.EnableRule)
			rules.POST("/:id/disable", h.DisableRule)
			rules.POST("/:id/reply-tracking", h.EnableReplyTracking)
		}

		api.GET("/executions", h.GetExecutions)
		api.GET("/executions/:id", h.GetExecution)
		api.GET("/trackers", h.GetTrackers)

		sched := api.Group("/scheduler")
		{
			sched.POST("/start", h.StartScheduler)
			sched.POST("/stop", h.StopScheduler)
			sched.POST("/run", h.RunOnce)
			sched.GET("/status", h.GetSchedulerStatus)
		}
	}
}

package api

import (
	"net/http"

	"github.com/flexprice/installments/internal/api/cron"
	v1 "github.com/flexprice/installments/internal/api/v1"
	"github.com/flexprice/installments/internal/config"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/metrics"
	"github.com/flexprice/installments/internal/rest/middleware"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	InstallmentPlan *v1.InstallmentPlanHandler
	Payment         *v1.PaymentHandler
	CronDueAlert    *cron.DueAlertCronHandler
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger, m *metrics.Metrics, sentryService *sentry.Service) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryRequestContextMiddleware,
		middleware.LoggingMiddleware(log),
		m.GinMiddleware(),
		middleware.ErrorHandler(sentryService),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1Router := router.Group("/v1")

	subscribers := v1Router.Group("/subscribers/:subscriber_id")
	{
		subscribers.PUT("/installment_plan", handlers.InstallmentPlan.ReplacePlan)
		subscribers.GET("/installment_plan", handlers.InstallmentPlan.GetPlan)
		subscribers.GET("/installment_plan/summary", handlers.InstallmentPlan.GetSummary)

		subscribers.POST("/payments", handlers.Payment.RecordPayment)
		subscribers.GET("/payments", handlers.Payment.ListPayments)
	}

	cronGroup := v1Router.Group("/cron")
	{
		cronGroup.POST("/installments/due_alerts", handlers.CronDueAlert.RunScan)
	}

	return router
}

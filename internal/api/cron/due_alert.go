package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/installments/internal/api/dto"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/service"
	"github.com/gin-gonic/gin"
)

// DueAlertCronHandler triggers the installment due date scan
type DueAlertCronHandler struct {
	dueAlertService service.DueAlertService
	logger          *logger.Logger
}

func NewDueAlertCronHandler(dueAlertService service.DueAlertService, logger *logger.Logger) *DueAlertCronHandler {
	return &DueAlertCronHandler{
		dueAlertService: dueAlertService,
		logger:          logger,
	}
}

// RunScan scans every enabled plan and publishes due and overdue alerts. The body is optional.
func (h *DueAlertCronHandler) RunScan(c *gin.Context) {
	h.logger.Infow("starting due alert cron job", "time", time.Now().UTC().Format(time.RFC3339))

	var req dto.RunDueAlertScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorw("failed to parse request body", "error", err)
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.dueAlertService.RunScan(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorw("failed to run due alert scan", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed due alert cron job", "alerts_published", resp.AlertsPublished)
	c.JSON(http.StatusOK, resp)
}

package v1

import (
	"net/http"

	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/config"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/service"
	"github.com/flexprice/installments/internal/types"
	"github.com/gin-gonic/gin"
)

type InstallmentPlanHandler struct {
	service service.InstallmentPlanService
	config  *config.Configuration
	log     *logger.Logger
}

func NewInstallmentPlanHandler(service service.InstallmentPlanService, config *config.Configuration, log *logger.Logger) *InstallmentPlanHandler {
	return &InstallmentPlanHandler{
		service: service,
		config:  config,
		log:     log,
	}
}

// ReplacePlan creates or replaces the subscriber's installment plan
// @Summary Replace installment plan
// @Tags InstallmentPlans
// @Accept json
// @Produce json
// @Param subscriber_id path string true "Subscriber ID"
// @Param request body dto.ReplaceInstallmentPlanRequest true "Plan"
// @Success 200 {object} dto.InstallmentPlanResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/subscribers/{subscriber_id}/installment_plan [put]
func (h *InstallmentPlanHandler) ReplacePlan(c *gin.Context) {
	var req dto.ReplaceInstallmentPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ReplacePlan(c.Request.Context(), c.Param("subscriber_id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPlan returns the stored plan with its version
// @Summary Get installment plan
// @Tags InstallmentPlans
// @Produce json
// @Param subscriber_id path string true "Subscriber ID"
// @Success 200 {object} dto.InstallmentPlanResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/subscribers/{subscriber_id}/installment_plan [get]
func (h *InstallmentPlanHandler) GetPlan(c *gin.Context) {
	resp, err := h.service.GetPlan(c.Request.Context(), c.Param("subscriber_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSummary returns progress, paid and remaining totals, the next due and overdue installments
// @Summary Get installment plan summary
// @Tags InstallmentPlans
// @Produce json
// @Param subscriber_id path string true "Subscriber ID"
// @Param as_of query string false "Day to evaluate, YYYY-MM-DD"
// @Success 200 {object} dto.InstallmentSummaryResponse
// @Router /v1/subscribers/{subscriber_id}/installment_plan/summary [get]
func (h *InstallmentPlanHandler) GetSummary(c *gin.Context) {
	asOf := types.Today(h.config.DueAlerts.Timezone)
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := types.ParseDate(raw)
		if err != nil {
			c.Error(err)
			return
		}
		asOf = parsed
	}

	resp, err := h.service.GetSummary(c.Request.Context(), c.Param("subscriber_id"), asOf)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

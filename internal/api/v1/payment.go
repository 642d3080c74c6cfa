package v1

import (
	"net/http"

	"github.com/flexprice/installments/internal/api/dto"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/service"
	"github.com/flexprice/installments/internal/types"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// RecordPayment stores a collected payment and applies it to the installment plan
// @Summary Record payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param subscriber_id path string true "Subscriber ID"
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.RecordPaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /v1/subscribers/{subscriber_id}/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordPayment(c.Request.Context(), c.Param("subscriber_id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListPayments lists the subscriber's payments, latest first
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param subscriber_id path string true "Subscriber ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.ListPaymentsResponse
// @Router /v1/subscribers/{subscriber_id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	filter := types.NewPaymentFilter()
	if err := c.ShouldBindQuery(filter.QueryFilter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid pagination parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.SubscriberID = c.Param("subscriber_id")

	resp, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

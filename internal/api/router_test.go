package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flexprice/installments/internal/api/cron"
	"github.com/flexprice/installments/internal/api/dto"
	v1 "github.com/flexprice/installments/internal/api/v1"
	"github.com/flexprice/installments/internal/cache"
	"github.com/flexprice/installments/internal/config"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/logger"
	"github.com/flexprice/installments/internal/metrics"
	"github.com/flexprice/installments/internal/pubsub/memory"
	"github.com/flexprice/installments/internal/sentry"
	"github.com/flexprice/installments/internal/service"
	"github.com/flexprice/installments/internal/testutil"
	"github.com/flexprice/installments/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	suite.Suite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := config.GetDefaultConfig()
	cfg.Sentry.Enabled = false
	cfg.Cache.Enabled = false
	log := logger.GetLogger()
	m := metrics.NewMetrics()
	sentryService := sentry.NewSentryService(cfg, log)

	params := service.NewServiceParams(
		log,
		cfg,
		testutil.NewInMemoryDB(),
		sentryService,
		m,
		cache.NewCache(cfg, log, nil),
		testutil.NewInMemoryInstallmentPlanStore(),
		testutil.NewInMemoryPaymentStore(),
		memory.NewPubSub(log),
	)

	s.router = NewRouter(Handlers{
		InstallmentPlan: v1.NewInstallmentPlanHandler(service.NewInstallmentPlanService(params), cfg, log),
		Payment:         v1.NewPaymentHandler(service.NewPaymentService(params), log),
		CronDueAlert:    cron.NewDueAlertCronHandler(service.NewDueAlertService(params), log),
	}, cfg, log, m, sentryService)
}

func (s *RouterSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

const planBody = `{
	"total_amount": "300",
	"num_installments": 3,
	"installments": [
		{"number": 1, "amount": 100, "due_date": "2024-01-10"},
		{"number": 2, "amount": "100", "due_date": "2024-02-10"},
		{"number": 3, "amount": 100, "due_date": "2024-03-10T00:00:00Z"}
	]
}`

func (s *RouterSuite) TestPlanPaymentSummaryFlow() {
	w := s.do(http.MethodPut, "/v1/subscribers/sub_1/installment_plan", planBody)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var plan dto.InstallmentPlanResponse
	s.decode(w, &plan)
	s.Equal(int64(1), plan.Version)
	s.Len(plan.Installments, 3)

	w = s.do(http.MethodPost, "/v1/subscribers/sub_1/payments",
		`{"amount": "150", "payment_date": "2024-01-09", "mode": "upi", "reference": "utr-123"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var payment dto.RecordPaymentResponse
	s.decode(w, &payment)
	s.Equal(types.LedgerStatusApplied, payment.Payment.LedgerStatus)
	s.Require().NotNil(payment.Adjustment)
	s.Require().NotNil(payment.Adjustment.CarriedToNumber)
	s.Equal(2, *payment.Adjustment.CarriedToNumber)
	s.True(payment.Adjustment.NextAmountAfter.Equal(dec("50")))

	w = s.do(http.MethodGet, "/v1/subscribers/sub_1/installment_plan/summary?as_of=2024-02-20", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var summary dto.InstallmentSummaryResponse
	s.decode(w, &summary)
	s.Equal(1, summary.PaidCount)
	s.Equal(int64(33), summary.ProgressPercentage)
	s.True(summary.PaidAmount.Equal(dec("150")))
	s.True(summary.RemainingAmount.Equal(dec("150")))
	s.Require().Len(summary.Overdue, 1)
	s.Equal(2, summary.Overdue[0].Number)

	w = s.do(http.MethodGet, "/v1/subscribers/sub_1/payments", "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var payments dto.ListPaymentsResponse
	s.decode(w, &payments)
	s.Equal(1, payments.Total)
	s.Equal("utr-123", payments.Items[0].Reference)
}

func (s *RouterSuite) TestErrorsMapToStatusCodes() {
	w := s.do(http.MethodGet, "/v1/subscribers/missing/installment_plan", "")
	s.Equal(http.StatusNotFound, w.Code)

	var body ierr.ErrorResponse
	s.decode(w, &body)
	s.False(body.Success)

	w = s.do(http.MethodPut, "/v1/subscribers/sub_1/installment_plan", `{"total_amount": `)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/subscribers/sub_1/payments", `{"amount": "0", "mode": "cash"}`)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/subscribers/sub_1/installment_plan/summary?as_of=not-a-date", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestDueAlertCron() {
	w := s.do(http.MethodPut, "/v1/subscribers/sub_1/installment_plan", planBody)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/cron/installments/due_alerts", `{"as_of": "2024-02-08"}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.DueAlertScanResponse
	s.decode(w, &resp)
	s.Equal(1, resp.PlansScanned)
	// #1 overdue, #2 due in two days
	s.Equal(2, resp.AlertsPublished)

	// body is optional
	w = s.do(http.MethodPost, "/v1/cron/installments/due_alerts", "")
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *RouterSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)

	s.do(http.MethodGet, "/v1/subscribers/missing/installment_plan", "")

	w = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
	s.True(strings.Contains(w.Body.String(), "installments_http_requests_total"))
}

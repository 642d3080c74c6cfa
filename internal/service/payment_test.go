package service

import (
	"sync"
	"testing"

	"github.com/flexprice/installments/internal/api/dto"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	ServiceTestSuite
	service PaymentService
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.service = NewPaymentService(s.params)
}

func (s *PaymentServiceSuite) listPayments(subscriberID string) []*dto.PaymentResponse {
	filter := types.NewPaymentFilter()
	filter.SubscriberID = subscriberID
	resp, err := s.service.ListPayments(s.ctx, filter)
	s.Require().NoError(err)
	return resp.Items
}

func (s *PaymentServiceSuite) TestRecordPayment_CarriesOverpayment() {
	s.storePlan("sub_1", true, "2024-01-10", "10000", "2500", "2500", "2500", "2500")

	resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("3000", "2024-01-08"))
	s.Require().NoError(err)

	s.Equal(types.LedgerStatusApplied, resp.Payment.LedgerStatus)
	s.Require().NotNil(resp.Payment.InstallmentNumber)
	s.Equal(1, *resp.Payment.InstallmentNumber)
	s.Require().NotNil(resp.Adjustment)
	s.True(resp.Adjustment.Variance.Equal(dec("500")))

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Version)
	s.True(stored.Installments[0].Paid)
	s.Equal(resp.Payment.ID, *stored.Installments[0].PaymentID)
	s.True(stored.Installments[1].Amount.Equal(dec("2000")))
	s.True(stored.Installments[2].Amount.Equal(dec("2500")))

	payments := s.listPayments("sub_1")
	s.Require().Len(payments, 1)
	s.Equal(resp.Payment.ID, payments[0].ID)
	s.Equal(types.PaymentModeCash, payments[0].Mode)

	s.Equal(1, s.db.TxCount())
	s.Equal(1, s.db.LockCount())
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindCarried)))
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.PaymentsTotal.WithLabelValues(string(types.LedgerStatusApplied))))
}

func (s *PaymentServiceSuite) TestRecordPayment_WithinToleranceLeavesNextInstallment() {
	s.storePlan("sub_1", true, "2024-01-10", "300", "100", "100", "100")

	resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100.40", "2024-01-10"))
	s.Require().NoError(err)
	s.True(resp.Adjustment.WithinTolerance())

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.True(stored.Installments[1].Amount.Equal(dec("100")))
	s.True(stored.Installments[0].PaidAmount.Equal(dec("100.40")))
}

func (s *PaymentServiceSuite) TestRecordPayment_ClampedOverpaymentIsCounted() {
	s.storePlan("sub_1", true, "2024-01-10", "300", "100", "100", "100")

	resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("250", "2024-01-10"))
	s.Require().NoError(err)
	s.True(resp.Adjustment.Clamped())
	s.True(resp.Adjustment.ClampedRemainder.Equal(dec("50")))
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.AdjustmentsTotal.WithLabelValues(adjustmentKindClamped)))

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.True(stored.Installments[1].Amount.IsZero())
	s.False(stored.Installments[1].Paid)
}

func (s *PaymentServiceSuite) TestRecordPayment_NoPlanStillStoresPayment() {
	resp, err := s.service.RecordPayment(s.ctx, "sub_without_plan", paymentRequest("100", "2024-01-10"))
	s.Require().NoError(err)

	s.Equal(types.LedgerStatusSkippedNoPlan, resp.Payment.LedgerStatus)
	s.Nil(resp.Payment.InstallmentNumber)
	s.Nil(resp.Adjustment)
	s.Nil(resp.Plan)
	s.Len(s.listPayments("sub_without_plan"), 1)
}

func (s *PaymentServiceSuite) TestRecordPayment_DisabledPlanStillStoresPayment() {
	s.storePlan("sub_1", false, "2024-01-10", "200", "100", "100")

	resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
	s.Require().NoError(err)
	s.Equal(types.LedgerStatusSkippedDisabled, resp.Payment.LedgerStatus)
	s.Nil(resp.Adjustment)

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.Equal(int64(1), stored.Version)
	s.False(stored.Installments[0].Paid)
	s.Len(s.listPayments("sub_1"), 1)
}

func (s *PaymentServiceSuite) TestRecordPayment_FullyPaidPlanStillStoresPayment() {
	s.storePlan("sub_1", true, "2024-01-10", "100", "100")

	first, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
	s.Require().NoError(err)
	s.Equal(types.LedgerStatusApplied, first.Payment.LedgerStatus)

	second, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-11"))
	s.Require().NoError(err)
	s.Equal(types.LedgerStatusSkippedFullyPaid, second.Payment.LedgerStatus)
	s.Nil(second.Payment.InstallmentNumber)
	s.Require().NotNil(second.Plan)
	s.Equal(int64(2), second.Plan.Version)

	s.Len(s.listPayments("sub_1"), 2)
}

func (s *PaymentServiceSuite) TestRecordPayment_RejectsNonPositiveAmount() {
	s.storePlan("sub_1", true, "2024-01-10", "200", "100", "100")

	for _, amount := range []string{"0", "-10"} {
		_, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest(amount, "2024-01-10"))
		s.Require().Error(err)
		s.True(ierr.IsInvalidAmount(err), amount)
	}

	s.Empty(s.listPayments("sub_1"))
	s.Equal(0, s.plans.UpdateCalls())
}

func (s *PaymentServiceSuite) TestRecordPayment_RejectsUnknownMode() {
	req := paymentRequest("100", "2024-01-10")
	req.Mode = "cheque"

	_, err := s.service.RecordPayment(s.ctx, "sub_1", req)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestRecordPayment_RetriesWriteConflicts() {
	s.storePlan("sub_1", true, "2024-01-10", "200", "100", "100")
	s.plans.InjectWriteConflicts(2)

	resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
	s.Require().NoError(err)
	s.Equal(types.LedgerStatusApplied, resp.Payment.LedgerStatus)

	s.Equal(3, s.plans.UpdateCalls())
	s.Equal(3, s.db.TxCount())
	s.Equal(float64(2), promtestutil.ToFloat64(s.params.Metrics.WriteRetriesTotal))
	s.Equal(float64(2), promtestutil.ToFloat64(s.params.Metrics.WriteConflictsTotal))
	s.Len(s.listPayments("sub_1"), 1)
}

func (s *PaymentServiceSuite) TestRecordPayment_GivesUpAfterMaxRetries() {
	s.storePlan("sub_1", true, "2024-01-10", "200", "100", "100")
	s.plans.InjectWriteConflicts(100)

	_, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
	s.Require().Error(err)
	s.True(ierr.IsWriteConflict(err))

	// first attempt plus the configured retries
	s.Equal(1+s.params.Config.Ledger.WriteConflictMaxRetries, s.plans.UpdateCalls())
	s.Empty(s.listPayments("sub_1"))
}

func (s *PaymentServiceSuite) TestRecordPayment_ConcurrentPaymentsSettleDistinctInstallments() {
	s.storePlan("sub_1", true, "2024-01-10", "500", "100", "100", "100", "100", "100")

	var wg sync.WaitGroup
	numbers := make(chan int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
			if err == nil && resp.Payment.InstallmentNumber != nil {
				numbers <- *resp.Payment.InstallmentNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make([]int, 0, 5)
	for n := range numbers {
		seen = append(seen, n)
	}
	s.ElementsMatch([]int{1, 2, 3, 4, 5}, seen)

	stored, err := s.plans.Get(s.ctx, "sub_1")
	s.Require().NoError(err)
	s.True(stored.IsFullyPaid())
	s.Equal(int64(6), stored.Version)
}

func (s *PaymentServiceSuite) TestRecordPayment_InvalidatesCachedSummary() {
	s.storePlan("sub_1", true, "2024-01-10", "200", "100", "100")
	plans := NewInstallmentPlanService(s.params)

	before, err := plans.GetSummary(s.ctx, "sub_1", day("2024-01-15"))
	s.Require().NoError(err)
	s.Equal(0, before.PaidCount)

	_, err = s.service.RecordPayment(s.ctx, "sub_1", paymentRequest("100", "2024-01-10"))
	s.Require().NoError(err)

	after, err := plans.GetSummary(s.ctx, "sub_1", day("2024-01-15"))
	s.Require().NoError(err)
	s.Equal(1, after.PaidCount)
	s.Equal(int64(50), after.ProgressPercentage)
}

func (s *PaymentServiceSuite) TestListPayments_RequiresSubscriber() {
	_, err := s.service.ListPayments(s.ctx, types.NewPaymentFilter())
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/flexprice/installments/internal/api/dto"
	"github.com/flexprice/installments/internal/domain/duealert"
	"github.com/flexprice/installments/internal/pubsub"
	"github.com/flexprice/installments/internal/testutil"
	"github.com/flexprice/installments/internal/types"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type DueAlertServiceSuite struct {
	ServiceTestSuite
	service DueAlertService
}

func TestDueAlertService(t *testing.T) {
	suite.Run(t, new(DueAlertServiceSuite))
}

func (s *DueAlertServiceSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.service = NewDueAlertService(s.params)
}

func (s *DueAlertServiceSuite) scan(asOf string) *dto.DueAlertScanResponse {
	resp, err := s.service.RunScan(s.ctx, dto.RunDueAlertScanRequest{
		AsOf: lo.ToPtr(types.NewDate(day(asOf))),
	})
	s.Require().NoError(err)
	return resp
}

func (s *DueAlertServiceSuite) TestRunScan_PagesThroughEnabledPlans() {
	// page size is 2, so five plans take three pages
	s.storePlan("sub_a", true, "2024-03-01", "200", "100", "100") // #1 overdue
	s.storePlan("sub_b", true, "2024-03-12", "100", "100")        // due in 2 days, high
	s.storePlan("sub_c", false, "2024-03-01", "100", "100")       // disabled
	s.storePlan("sub_d", true, "2024-03-13", "100", "100")        // due in 3 days, medium
	s.storePlan("sub_e", true, "2024-04-01", "100", "100")        // nothing due

	resp := s.scan("2024-03-10")

	s.Equal("2024-03-10", resp.AsOf.String())
	s.Equal(4, resp.PlansScanned)
	s.Equal(3, resp.AlertsPublished)
	s.Equal(0, resp.PublishFailures)

	got := lo.Map(resp.Alerts, func(a *duealert.Alert, _ int) string {
		return a.DedupKey + "/" + string(a.Priority)
	})
	s.Equal([]string{
		"sub_a:1:installment_overdue:2024-03-10/high",
		"sub_b:1:installment_due_soon:2024-03-10/high",
		"sub_d:1:installment_due_soon:2024-03-10/medium",
	}, got)

	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.DueAlertsTotal.WithLabelValues(
		string(types.DueAlertTypeDueSoon), string(types.DueAlertPriorityMedium))))
}

func (s *DueAlertServiceSuite) TestRunScan_IsIdempotent() {
	s.storePlan("sub_a", true, "2024-03-01", "200", "100", "100")

	first := s.scan("2024-03-10")
	second := s.scan("2024-03-10")
	s.Equal(first.Alerts, second.Alerts)
}

func (s *DueAlertServiceSuite) TestRunScan_PublishesMessages() {
	s.storePlan("sub_a", true, "2024-03-01", "200", "100", "100")

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	messages, err := s.params.AlertPublisher.Subscribe(ctx, s.params.Config.DueAlerts.Topic)
	s.Require().NoError(err)

	s.scan("2024-03-10")

	select {
	case msg := <-messages:
		s.Equal("sub_a:1:installment_overdue:2024-03-10", msg.UUID)
		s.Equal("sub_a", msg.Metadata.Get(MetadataSubscriberID))
		s.Equal("sub_a", msg.Metadata.Get(pubsub.MetadataPartitionKey))
		s.Equal(string(types.DueAlertPriorityHigh), msg.Metadata.Get(MetadataPriority))

		var alert duealert.Alert
		s.Require().NoError(json.Unmarshal(msg.Payload, &alert))
		s.Equal(9, -alert.DaysUntilDue)
		s.True(alert.Amount.Equal(dec("100")))
		msg.Ack()
	case <-time.After(time.Second):
		s.Fail("alert was not published")
	}
}

func (s *DueAlertServiceSuite) TestRunScan_CountsPublishFailures() {
	publisher := new(testutil.MockPubSub)
	publisher.On("Publish", mock.Anything, s.params.Config.DueAlerts.Topic, mock.Anything).
		Return(errors.New("broker unavailable")).Once()
	publisher.On("Publish", mock.Anything, s.params.Config.DueAlerts.Topic, mock.Anything).
		Return(nil)
	publisher.On("Close").Return(nil)

	s.params.AlertPublisher = publisher
	s.service = NewDueAlertService(s.params)

	s.storePlan("sub_a", true, "2024-03-01", "200", "100", "100")
	s.storePlan("sub_b", true, "2024-03-12", "100", "100")

	resp := s.scan("2024-03-10")
	s.Equal(1, resp.PublishFailures)
	s.Equal(1, resp.AlertsPublished)
	s.Len(resp.Alerts, 2)
	s.Equal(float64(1), promtestutil.ToFloat64(s.params.Metrics.DueAlertPublishErrors))
	publisher.AssertNumberOfCalls(s.T(), "Publish", 2)
}

func (s *DueAlertServiceSuite) TestRunScan_NoPlans() {
	resp := s.scan("2024-03-10")
	s.Equal(0, resp.PlansScanned)
	s.NotNil(resp.Alerts)
	s.Empty(resp.Alerts)
}

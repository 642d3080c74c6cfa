package dto

import (
	"github.com/flexprice/installments/internal/domain/duealert"
	"github.com/flexprice/installments/internal/types"
)

// RunDueAlertScanRequest triggers a scan. AsOf defaults to today in the configured timezone.
type RunDueAlertScanRequest struct {
	AsOf *types.Date `json:"as_of,omitempty"`
}

type DueAlertScanResponse struct {
	AsOf            types.Date        `json:"as_of"`
	PlansScanned    int               `json:"plans_scanned"`
	AlertsPublished int               `json:"alerts_published"`
	PublishFailures int               `json:"publish_failures"`
	Alerts          []*duealert.Alert `json:"alerts"`
}

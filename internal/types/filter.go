package types

import (
	ierr "github.com/flexprice/installments/internal/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// QueryFilter carries limit/offset pagination
type QueryFilter struct {
	Limit  *int `json:"limit,omitempty" form:"limit"`
	Offset *int `json:"offset,omitempty" form:"offset"`
}

func NewDefaultQueryFilter() *QueryFilter {
	limit := DefaultLimit
	offset := 0
	return &QueryFilter{Limit: &limit, Offset: &offset}
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return DefaultLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit <= 0 || *f.Limit > MaxLimit) {
		return ierr.NewErrorf("limit must be between 1 and %d", MaxLimit).
			WithHint("Invalid pagination limit").
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("offset must be non-negative").
			WithHint("Invalid pagination offset").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InstallmentPlanFilter pages through stored plans ordered by subscriber id.
// AfterSubscriberID is a keyset cursor; when set Offset is ignored.
type InstallmentPlanFilter struct {
	*QueryFilter
	AfterSubscriberID string `json:"after_subscriber_id,omitempty" form:"after_subscriber_id"`
	EnabledOnly       bool   `json:"enabled_only,omitempty" form:"enabled_only"`
}

func NewInstallmentPlanFilter() *InstallmentPlanFilter {
	return &InstallmentPlanFilter{QueryFilter: NewDefaultQueryFilter()}
}

type PaymentFilter struct {
	*QueryFilter
	SubscriberID string `json:"subscriber_id,omitempty" form:"subscriber_id"`
}

func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{QueryFilter: NewDefaultQueryFilter()}
}

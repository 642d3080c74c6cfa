package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkAndIs(t *testing.T) {
	err := NewError("no plan for subscriber").
		WithHint("Installment plan not found").
		WithReportableDetails(map[string]interface{}{"subscriber_id": "sub_1"}).
		Mark(ErrPlanNotFound)

	assert.True(t, IsPlanNotFound(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsWriteConflict(err))
	assert.Equal(t, "Installment plan not found", GetHint(err))
	assert.Equal(t, "sub_1", GetReportableDetails(err)["subscriber_id"])
}

func TestDoubleMark(t *testing.T) {
	err := WithError(NewError("missing").Mark(ErrNotFound)).Mark(ErrPlanNotFound)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsPlanNotFound(err))
}

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", NewError("x").Mark(ErrNotFound), http.StatusNotFound},
		{"plan not found", NewError("x").Mark(ErrPlanNotFound), http.StatusNotFound},
		{"conflict", NewError("x").Mark(ErrWriteConflict), http.StatusConflict},
		{"fully paid", NewError("x").Mark(ErrPlanFullyPaid), http.StatusUnprocessableEntity},
		{"disabled", NewError("x").Mark(ErrPlanDisabled), http.StatusUnprocessableEntity},
		{"invalid amount", NewError("x").Mark(ErrInvalidAmount), http.StatusBadRequest},
		{"validation", NewError("x").Mark(ErrValidation), http.StatusBadRequest},
		{"database", NewError("x").Mark(ErrDatabase), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromErr(tt.err))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewError("boom").Mark(ErrInternal))
	assert.False(t, resp.Success)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Display)
	assert.Contains(t, resp.Error.InternalError, "boom")
	assert.Nil(t, resp.Error.Details)
}

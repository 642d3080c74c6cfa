package installment

import (
	"testing"

	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan_SortsByNumber(t *testing.T) {
	plan, err := NewPlan("sub_1", true, dec("300"), 3, nil, []Installment{
		{Number: 3, Amount: dec("100"), DueDate: day("2024-03-01")},
		{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01")},
		{Number: 2, Amount: dec("100"), DueDate: day("2024-02-01")},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, lo.Map(plan.Installments, func(i Installment, _ int) int { return i.Number }))
}

func TestNewPlan_Validation(t *testing.T) {
	tests := []struct {
		name         string
		subscriberID string
		total        string
		num          int
		installments []Installment
	}{
		{
			name:  "missing subscriber",
			total: "100", num: 1,
			installments: []Installment{{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01")}},
		},
		{
			name:         "negative total",
			subscriberID: "sub_1", total: "-1", num: 0,
		},
		{
			name:         "count mismatch",
			subscriberID: "sub_1", total: "100", num: 2,
			installments: []Installment{{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01")}},
		},
		{
			name:         "gap in numbers",
			subscriberID: "sub_1", total: "200", num: 2,
			installments: []Installment{
				{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01")},
				{Number: 3, Amount: dec("100"), DueDate: day("2024-02-01")},
			},
		},
		{
			name:         "duplicate numbers",
			subscriberID: "sub_1", total: "200", num: 2,
			installments: []Installment{
				{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01")},
				{Number: 1, Amount: dec("100"), DueDate: day("2024-02-01")},
			},
		},
		{
			name:         "negative amount",
			subscriberID: "sub_1", total: "100", num: 1,
			installments: []Installment{{Number: 1, Amount: dec("-100"), DueDate: day("2024-01-01")}},
		},
		{
			name:         "due dates decrease",
			subscriberID: "sub_1", total: "200", num: 2,
			installments: []Installment{
				{Number: 1, Amount: dec("100"), DueDate: day("2024-02-01")},
				{Number: 2, Amount: dec("100"), DueDate: day("2024-01-01")},
			},
		},
		{
			name:         "paid without payment id",
			subscriberID: "sub_1", total: "100", num: 1,
			installments: []Installment{{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01"),
				Paid: true, PaidDate: lo.ToPtr(day("2024-01-01"))}},
		},
		{
			name:         "unpaid with paid amount",
			subscriberID: "sub_1", total: "100", num: 1,
			installments: []Installment{{Number: 1, Amount: dec("100"), DueDate: day("2024-01-01"),
				PaidAmount: lo.ToPtr(dec("100"))}},
		},
		{
			name:         "missing due date",
			subscriberID: "sub_1", total: "100", num: 1,
			installments: []Installment{{Number: 1, Amount: dec("100")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.subscriberID, true, dec(tt.total), tt.num, nil, tt.installments)
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err), "unexpected error: %v", err)
		})
	}
}

func TestPlan_CloneIsDeep(t *testing.T) {
	plan := newTestPlan(t, "200", "100", "100")
	plan, _ = pay(t, plan, "100", "2024-01-01", "pay_1")

	c := plan.Clone()
	*c.Installments[0].PaymentID = "changed"
	c.Installments[1].Amount = dec("1")

	assert.Equal(t, "pay_1", *plan.Installments[0].PaymentID)
	assert.True(t, plan.Installments[1].Amount.Equal(dec("100")))
}

func TestPlan_ScheduledTotalDrifts(t *testing.T) {
	plan := newTestPlan(t, "200", "100", "100")
	assert.True(t, plan.ScheduledTotal().Equal(dec("200")))

	plan, _ = pay(t, plan, "150", "2024-01-01", "pay_1")
	assert.True(t, plan.ScheduledTotal().Equal(dec("150")))
	assert.True(t, plan.TotalAmount.Equal(dec("200")))
}

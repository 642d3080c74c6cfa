package installment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// newTestPlan builds an enabled plan with monthly due dates starting 2024-01-01
func newTestPlan(t *testing.T, total string, amounts ...string) *Plan {
	t.Helper()
	installments := make([]Installment, len(amounts))
	for i, a := range amounts {
		installments[i] = Installment{
			Number:  i + 1,
			Amount:  dec(a),
			DueDate: day("2024-01-01").AddDate(0, i, 0),
		}
	}
	plan, err := NewPlan("sub_1", true, dec(total), len(amounts), nil, installments)
	require.NoError(t, err)
	return plan
}

func pay(t *testing.T, plan *Plan, amount, date, paymentID string) (*Plan, *Adjustment) {
	t.Helper()
	updated, adj, err := Reconcile(plan, Application{
		Amount:    dec(amount),
		Date:      day(date),
		PaymentID: paymentID,
	})
	require.NoError(t, err)
	return updated, adj
}

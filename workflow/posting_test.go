package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// NOTE: DB-free tests. PostJournal validates date and balance before it
// touches the transaction, so the guard paths run with a nil tx.

func balancedInput(debit, credit decimal.Decimal) JournalInput {
	return JournalInput{
		JournalDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Narration:     "test posting",
		ReferenceType: models.RefTypeInvoiceFinalize,
		ReferenceId:   1,
		Lines: []JournalLine{
			{AccountCode: models.AccountCodeAccountsReceivable, Debit: debit},
			{AccountCode: models.AccountCodeSalesRevenue, Credit: credit},
		},
	}
}

func TestPostJournal_RejectsZeroDate(t *testing.T) {
	input := balancedInput(decimal.NewFromInt(100), decimal.NewFromInt(100))
	input.JournalDate = time.Time{}

	_, err := PostJournal(nil, "biz-1", input)
	if !errors.Is(err, utils.ErrorInvalidDate) {
		t.Fatalf("err = %v, want invalid date", err)
	}
}

func TestPostJournal_RejectsSingleLeg(t *testing.T) {
	input := balancedInput(decimal.NewFromInt(100), decimal.NewFromInt(100))
	input.Lines = input.Lines[:1]

	_, err := PostJournal(nil, "biz-1", input)
	if !errors.Is(err, utils.ErrorUnbalancedJournal) {
		t.Fatalf("err = %v, want unbalanced", err)
	}
}

func TestPostJournal_RejectsUnbalancedLines(t *testing.T) {
	cases := []struct {
		name   string
		debit  decimal.Decimal
		credit decimal.Decimal
	}{
		{"off by a rupee", decimal.NewFromInt(1180), decimal.NewFromInt(1179)},
		{"off past tolerance", decimal.RequireFromString("100.02"), decimal.NewFromInt(100)},
		{"sign flipped", decimal.NewFromInt(100), decimal.NewFromInt(-100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PostJournal(nil, "biz-1", balancedInput(tc.debit, tc.credit))
			if !errors.Is(err, utils.ErrorUnbalancedJournal) {
				t.Fatalf("err = %v, want unbalanced", err)
			}
		})
	}
}

func TestBalanceTolerance_BoundaryMath(t *testing.T) {
	// 0.01 drift is acceptable rounding; 0.011 is not.
	within := decimal.RequireFromString("0.01")
	if within.Abs().GreaterThan(balanceTolerance) {
		t.Fatal("one paisa drift should be within tolerance")
	}
	outside := decimal.RequireFromString("0.011")
	if !outside.Abs().GreaterThan(balanceTolerance) {
		t.Fatal("drift past a paisa should exceed tolerance")
	}
}

func TestInvoiceFinalizeLineShape(t *testing.T) {
	// The GST invoice shape: one AR debit balanced by revenue + two tax
	// credits. Verified arithmetically here; the posting itself is covered
	// by the integration scenarios.
	taxable := decimal.NewFromInt(1000)
	cgst := decimal.NewFromInt(90)
	sgst := decimal.NewFromInt(90)
	grand := taxable.Add(cgst).Add(sgst)

	if !grand.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("grand total = %s", grand)
	}

	credits := taxable.Add(cgst).Add(sgst)
	if !grand.Sub(credits).IsZero() {
		t.Fatal("finalize shape does not balance")
	}
}

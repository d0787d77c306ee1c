package deletion

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"github.com/shopspring/decimal"
)

func TestGroupAddItem_CountsPastDisplayCap(t *testing.T) {
	g := Group{Key: "payments", Label: "Payments"}
	for i := 0; i < MaxDisplayItems+7; i++ {
		g.AddItem(Item{
			Reference: "PAY",
			Amount:    decimal.NewFromInt(10),
		})
	}

	if g.Count != MaxDisplayItems+7 {
		t.Fatalf("Count = %d, want %d", g.Count, MaxDisplayItems+7)
	}
	if len(g.Items) != MaxDisplayItems {
		t.Fatalf("len(Items) = %d, want %d", len(g.Items), MaxDisplayItems)
	}
	if g.RemainingCount != 7 {
		t.Fatalf("RemainingCount = %d, want 7", g.RemainingCount)
	}
	want := decimal.NewFromInt(int64((MaxDisplayItems + 7) * 10))
	if !g.FinancialImpact.Equal(want) {
		t.Fatalf("FinancialImpact = %s, want %s", g.FinancialImpact, want)
	}
}

func TestNormalize_AggregatesGroupsAndBlockers(t *testing.T) {
	s := &DeletionSummary{
		Operation: models.OperationCancel,
		Blockers:  []string{"payment pending", "payment pending", ""},
		Warnings:  []string{"tax reversal", "tax reversal"},
	}

	g1 := Group{Key: "payments", Label: "Payments"}
	g1.AddItem(Item{
		Amount: decimal.NewFromInt(500),
		Actions: []DependencyAction{{
			Entity:              models.EntityInvoicePayment,
			RecordId:            1,
			Operation:           models.OperationReverse,
			Enabled:             true,
			RequireBeforeParent: true,
		}},
	})
	g2 := Group{Key: "ledger_postings", Label: "Ledger Postings"}
	g2.AddItem(Item{Amount: decimal.NewFromInt(1180)})
	s.Groups = []Group{g1, g2}

	s.Normalize()

	if len(s.Blockers) != 1 {
		t.Fatalf("Blockers = %v, want deduped single entry", s.Blockers)
	}
	if len(s.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want deduped single entry", s.Warnings)
	}
	if s.TotalDependencies != 2 {
		t.Fatalf("TotalDependencies = %d, want 2", s.TotalDependencies)
	}
	if !s.TotalFinancialImpact.Equal(decimal.NewFromInt(1680)) {
		t.Fatalf("TotalFinancialImpact = %s, want 1680", s.TotalFinancialImpact)
	}
	if s.PendingDependencyResolutions != 1 {
		t.Fatalf("PendingDependencyResolutions = %d, want 1", s.PendingDependencyResolutions)
	}
	if s.CanProceed {
		t.Fatal("CanProceed = true with blockers present")
	}
	if s.Severity != models.SeverityHigh {
		t.Fatalf("Severity = %s, want high (blockers escalate)", s.Severity)
	}
}

func TestNormalize_CanProceedWithoutBlockers(t *testing.T) {
	s := &DeletionSummary{Operation: models.OperationDelete}
	s.Normalize()

	if !s.CanProceed {
		t.Fatal("CanProceed = false with no blockers")
	}
	if s.Severity != models.SeverityNormal {
		t.Fatalf("Severity = %s, want normal", s.Severity)
	}
	if s.RecommendedAction == "" {
		t.Fatal("RecommendedAction should default when unset")
	}
}

func TestDeriveSeverity_Thresholds(t *testing.T) {
	cases := []struct {
		name     string
		blockers int
		deps     int
		impact   decimal.Decimal
		want     models.Severity
	}{
		{"empty", 0, 0, decimal.Zero, models.SeverityNormal},
		{"small", 0, 3, decimal.NewFromInt(500), models.SeverityNormal},
		{"medium impact", 0, 3, decimal.NewFromInt(10000), models.SeverityMedium},
		{"medium count", 0, 10, decimal.Zero, models.SeverityMedium},
		{"high impact", 0, 3, decimal.NewFromInt(100000), models.SeverityHigh},
		{"high count", 0, 50, decimal.Zero, models.SeverityHigh},
		{"negative impact uses magnitude", 0, 0, decimal.NewFromInt(-100000), models.SeverityHigh},
		{"blocker forces high", 1, 0, decimal.Zero, models.SeverityHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveSeverity(tc.blockers, tc.deps, tc.impact)
			if got != tc.want {
				t.Fatalf("deriveSeverity(%d, %d, %s) = %s, want %s",
					tc.blockers, tc.deps, tc.impact, got, tc.want)
			}
		})
	}
}

func TestCompact_ProjectsAggregates(t *testing.T) {
	s := &DeletionSummary{
		Entity:    models.EntityInvoice,
		RecordId:  42,
		Operation: models.OperationCancel,
		MainRecord: MainRecordInfo{
			Label:     "Service Invoice",
			Reference: "INV-100",
			Date:      time.Now(),
			Amount:    decimal.NewFromInt(1180),
		},
		Blockers:      []string{"invoice has 1 unreversed payment(s)"},
		ExecutionMode: models.ExecutionModeSoftDeleteWithReversal,
	}
	g := Group{Key: "payments"}
	g.AddItem(Item{Amount: decimal.NewFromInt(500)})
	s.Groups = []Group{g}
	s.Normalize()

	c := s.Compact()

	if c.Entity != models.EntityInvoice || c.RecordId != 42 {
		t.Fatalf("identity not carried: %+v", c)
	}
	if c.GroupCounts["payments"] != 1 {
		t.Fatalf("GroupCounts = %v", c.GroupCounts)
	}
	if c.CanProceed {
		t.Fatal("CanProceed should carry the blocker veto")
	}
	if len(c.Blockers) != 1 {
		t.Fatalf("Blockers = %v", c.Blockers)
	}
	if c.ExecutionMode != models.ExecutionModeSoftDeleteWithReversal {
		t.Fatalf("ExecutionMode = %s", c.ExecutionMode)
	}

	// mutating the compact copy must not touch the source
	c.Blockers[0] = "changed"
	if s.Blockers[0] == "changed" {
		t.Fatal("Compact shares the blockers slice with the summary")
	}
}

func TestJobLineStatusBlocker(t *testing.T) {
	if got := jobLineStatusBlocker(models.JobCardStatusOpen); got != "" {
		t.Fatalf("OPEN card should not block, got %q", got)
	}
	if got := jobLineStatusBlocker(models.JobCardStatusClosed); got != "job card is closed - reopen the job first" {
		t.Fatalf("CLOSED blocker = %q", got)
	}
	if got := jobLineStatusBlocker(models.JobCardStatusInvoiced); got != "job card is closed - reopen the job first" {
		t.Fatalf("INVOICED blocker = %q", got)
	}
	if got := jobLineStatusBlocker(models.JobCardStatusCancelled); got == "" {
		t.Fatal("CANCELLED card should block line edits")
	}
}

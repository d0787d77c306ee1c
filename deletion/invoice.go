package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// invoiceAnalyzer handles cancel/delete of a service invoice. An invoice
// with live money against it (payments, advance adjustments) is blocked
// until those are reversed or released; ledger postings cascade
// automatically.
type invoiceAnalyzer struct{}

func (a *invoiceAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var invoice models.ServiceInvoice
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&invoice).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	operation := opts.Operation
	if operation == "" || operation == models.OperationAuto {
		operation = models.OperationCancel
	}

	summary := &DeletionSummary{
		Operation: operation,
		MainRecord: MainRecordInfo{
			Label:     "Service Invoice",
			Reference: invoice.InvoiceNumber,
			Date:      invoice.InvoiceDate,
			Amount:    invoice.GrandTotal,
			Status:    string(invoice.Status),
		},
		ExecutionMode: models.ExecutionModeSoftDeleteWithReversal,
	}

	switch invoice.Status {
	case models.InvoiceStatusCancelled:
		summary.Blockers = append(summary.Blockers, "invoice is already cancelled")
	case models.InvoiceStatusDeleted:
		summary.Blockers = append(summary.Blockers, "invoice is already deleted")
	case models.InvoiceStatusDraft:
		// Draft invoices never posted; a plain soft delete is enough.
		summary.ExecutionMode = models.ExecutionModeSoftDelete
	}

	// Payments: every unreversed payment blocks, with a reverse action the
	// caller must run first.
	var payments []models.InvoicePayment
	if err := db.Where(
		"business_id = ? AND invoice_id = ? AND entry_type = ?",
		scope.BusinessId, recordId, models.EntryTypePayment,
	).Order("payment_date").Find(&payments).Error; err != nil {
		return nil, err
	}
	if len(payments) > 0 {
		group := Group{Key: "payments", Label: "Payments"}
		unreversed := 0
		for _, p := range payments {
			item := Item{
				Reference: fmt.Sprintf("PAY-%d", p.ID),
				Date:      p.PaymentDate,
				Amount:    p.Amount,
				Status:    paymentStatusLabel(&p),
				Related:   invoice.InvoiceNumber,
			}
			if !p.IsReversed {
				unreversed++
				item.Actions = append(item.Actions, DependencyAction{
					Label:               "Reverse payment",
					Entity:              models.EntityInvoicePayment,
					RecordId:            p.ID,
					Operation:           models.OperationReverse,
					Enabled:             true,
					RequireBeforeParent: true,
					Hint:                "Payment must be reversed before the invoice can be cancelled",
				})
			}
			group.AddItem(item)
		}
		if unreversed > 0 {
			summary.Blockers = append(summary.Blockers,
				fmt.Sprintf("invoice has %d unreversed payment(s)", unreversed))
		}
		summary.Groups = append(summary.Groups, group)
	}

	// Advance adjustments applied against this invoice are released by the
	// cancel cascade; informational, not blocking.
	var adjustments []models.AdvanceAdjustment
	if err := db.Where(
		"business_id = ? AND invoice_id = ? AND status = ?",
		scope.BusinessId, recordId, models.StatusActive,
	).Find(&adjustments).Error; err != nil {
		return nil, err
	}
	if len(adjustments) > 0 {
		group := Group{
			Key:     "advance_adjustments",
			Label:   "Advance Adjustments",
			Warning: "Applied advances will be released back to the customer balance",
		}
		for _, adj := range adjustments {
			group.AddItem(Item{
				Reference: fmt.Sprintf("ADJ-%d", adj.ID),
				Date:      adj.CreatedAt,
				Amount:    adj.Amount,
				Status:    string(adj.Status),
				Related:   fmt.Sprintf("advance #%d", adj.AdvanceId),
			})
		}
		summary.Groups = append(summary.Groups, group)
		summary.Warnings = append(summary.Warnings, "advance adjustments will be released")
	}

	// Ledger postings (finalize journal with its GST lines) reverse
	// automatically with the cancel; surfaced so the caller sees the
	// financial footprint.
	journalGroup, err := journalDependencyGroup(ctx, scope, string(models.RefTypeInvoiceFinalize), recordId)
	if err != nil {
		return nil, err
	}
	if journalGroup != nil {
		summary.Groups = append(summary.Groups, *journalGroup)
		summary.Warnings = append(summary.Warnings, "GST and revenue postings will be reversed")
	}

	summary.RecommendedAction = "Cancel invoice and reverse its postings"
	return summary, nil
}

func paymentStatusLabel(p *models.InvoicePayment) string {
	if p.IsReversed {
		return "REVERSED"
	}
	return "RECEIVED"
}

// journalDependencyGroup lists unreversed journals posted for a reference.
// Reused by every analyzer whose entity posts to the ledger.
func journalDependencyGroup(ctx context.Context, scope Scope, referenceType string, referenceId int) (*Group, error) {
	db := config.GetDB().WithContext(ctx)

	var journals []models.AccountJournal
	if err := db.Where(
		"business_id = ? AND reference_type = ? AND reference_id = ? AND is_reversal = ? AND reversed_by_journal_id IS NULL",
		scope.BusinessId, referenceType, referenceId, false,
	).Find(&journals).Error; err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, nil
	}

	group := Group{Key: "ledger_postings", Label: "Ledger Postings"}
	for _, j := range journals {
		group.AddItem(Item{
			Reference: fmt.Sprintf("JRN-%d", j.ID),
			Date:      j.JournalDate,
			Amount:    j.TotalAmount,
			Status:    "POSTED",
			Note:      j.Narration,
			Actions: []DependencyAction{{
				Label:     "Reverse journal",
				Entity:    models.EntityAccountJournal,
				RecordId:  j.ID,
				Operation: models.OperationAuto,
				Enabled:   true,
				Hint:      "Reversed automatically with the parent operation",
			}},
		})
	}
	return &group, nil
}

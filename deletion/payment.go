package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// paymentAnalyzer handles reversal of an invoice payment. Pure financial
// row: the row stays, a negating REVERSAL row and a mirrored ledger journal
// net its effect to zero.
type paymentAnalyzer struct{}

func (a *paymentAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var payment models.InvoicePayment
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&payment).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationReverse,
		MainRecord: MainRecordInfo{
			Label:     "Invoice Payment",
			Reference: fmt.Sprintf("PAY-%d", payment.ID),
			Date:      payment.PaymentDate,
			Amount:    payment.Amount,
			Status:    paymentStatusLabel(&payment),
		},
		ExecutionMode:     models.ExecutionModeFinancialReversal,
		RecommendedAction: "Reverse the payment and its ledger posting",
	}

	if payment.EntryType == models.EntryTypeReversal {
		summary.Blockers = append(summary.Blockers, "a reversal entry cannot itself be reversed")
	}
	if payment.IsReversed {
		summary.Blockers = append(summary.Blockers, "payment is already reversed")
	}

	// The invoice whose paid amount will drop back.
	var invoice models.ServiceInvoice
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, payment.InvoiceId).
		First(&invoice).Error; err == nil {
		group := Group{Key: "invoice", Label: "Invoice"}
		group.AddItem(Item{
			Reference: invoice.InvoiceNumber,
			Date:      invoice.InvoiceDate,
			Amount:    invoice.GrandTotal,
			Status:    string(invoice.Status),
			Note:      "Outstanding balance will increase by the reversed amount",
		})
		summary.Groups = append(summary.Groups, group)
	}

	journalGroup, err := journalDependencyGroup(ctx, scope, string(models.RefTypePaymentReceipt), payment.ID)
	if err != nil {
		return nil, err
	}
	if journalGroup != nil {
		summary.Groups = append(summary.Groups, *journalGroup)
	}

	return summary, nil
}

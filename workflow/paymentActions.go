package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reversePaymentAction nets an invoice payment to zero:
//
//  1. a REVERSAL payment row with the negated amount, linked to the original
//  2. the original flagged is_reversed (claimed conditionally, at most once)
//  3. the invoice's paid amount walked back
//  4. the payment's ledger journal mirrored
//
// The original row is never deleted; the pair nets to zero and both stay
// visible in history.
func reversePaymentAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var payment models.InvoicePayment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&payment).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if payment.EntryType == models.EntryTypeReversal {
		return nil, errReverseReversal
	}
	if payment.IsReversed {
		return nil, utils.ErrorAlreadyReversed
	}

	var invoice models.ServiceInvoice
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, payment.InvoiceId).
		First(&invoice).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	reversal := models.InvoicePayment{
		BusinessId:        req.BusinessId,
		BranchId:          payment.BranchId,
		InvoiceId:         payment.InvoiceId,
		PaymentDate:       time.Now(),
		Amount:            payment.Amount.Neg(),
		PaymentMode:       payment.PaymentMode,
		EntryType:         models.EntryTypeReversal,
		ReversedPaymentId: &payment.ID,
		ReceivedBy:        req.UserId,
		Notes:             fmt.Sprintf("Reversal of PAY-%d: %s", payment.ID, req.Reason),
	}
	if err := tx.Create(&reversal).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ErrorAlreadyReversed
		}
		return nil, err
	}

	result := tx.Model(&models.InvoicePayment{}).
		Where("id = ? AND is_reversed = ?", payment.ID, false).
		Updates(map[string]interface{}{
			"is_reversed":     true,
			"reversal_reason": req.Reason,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, utils.ErrorAlreadyReversed
	}

	newPaid := invoice.AmountPaid.Sub(payment.Amount)
	updates := map[string]interface{}{"amount_paid": newPaid}
	// A fully-paid invoice drops back to FINALIZED when money comes off it.
	if invoice.Status == models.InvoiceStatusPaid {
		updates["status"] = models.InvoiceStatusFinalized
	}
	if err := tx.Model(&models.ServiceInvoice{}).
		Where("id = ?", invoice.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	journalIds, err := ReverseJournalsByReference(tx, req.BusinessId, models.RefTypePaymentReceipt, payment.ID, req.Reason)
	if err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:      models.ExecutionModeFinancialReversal,
		ReversalJournalIds: journalIds,
		CreatedRecordId:    reversal.ID,
		Details:            fmt.Sprintf("payment PAY-%d reversed by PAY-%d", payment.ID, reversal.ID),
	}, nil
}

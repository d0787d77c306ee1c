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

// cancelInvoiceAction cancels a service invoice. Blockers are re-checked
// against live rows under lock: a payment recorded between preview and
// confirm still vetoes the cancel. Advance adjustments are released back
// to their advances and the finalize journal is mirrored.
func cancelInvoiceAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var invoice models.ServiceInvoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&invoice).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	switch invoice.Status {
	case models.InvoiceStatusCancelled, models.InvoiceStatusDeleted:
		return nil, utils.ErrorAlreadyDeleted
	}

	var unreversed int64
	if err := tx.Model(&models.InvoicePayment{}).Where(
		"business_id = ? AND invoice_id = ? AND entry_type = ? AND is_reversed = ?",
		req.BusinessId, invoice.ID, models.EntryTypePayment, false,
	).Count(&unreversed).Error; err != nil {
		return nil, err
	}
	if unreversed > 0 {
		return nil, utils.NewBlockedError(
			[]string{fmt.Sprintf("invoice has %d unreversed payment(s)", unreversed)},
			"reverse each payment, then retry the cancel",
		)
	}

	// Release applied advances: adjustment rows go inactive and the adjusted
	// amount walks back so the advance becomes spendable again.
	var adjustments []models.AdvanceAdjustment
	if err := tx.Where(
		"business_id = ? AND invoice_id = ? AND status = ?",
		req.BusinessId, invoice.ID, models.StatusActive,
	).Find(&adjustments).Error; err != nil {
		return nil, err
	}
	for _, adj := range adjustments {
		var advance models.CustomerAdvance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("business_id = ? AND id = ?", req.BusinessId, adj.AdvanceId).
			First(&advance).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := tx.Model(&models.CustomerAdvance{}).
			Where("id = ?", advance.ID).
			Update("adjusted_amount", advance.AdjustedAmount.Sub(adj.Amount)).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(&models.AdvanceAdjustment{}).
			Where("id = ?", adj.ID).
			Update("status", models.StatusInactive).Error; err != nil {
			return nil, err
		}
	}

	journalIds, err := ReverseJournalsByReference(tx, req.BusinessId, models.RefTypeInvoiceFinalize, invoice.ID, req.Reason)
	if err != nil {
		return nil, err
	}

	mode := models.ExecutionModeSoftDeleteWithReversal
	if invoice.Status == models.InvoiceStatusDraft {
		mode = models.ExecutionModeSoftDelete
	}

	now := time.Now()
	if err := tx.Model(&models.ServiceInvoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"status":        models.InvoiceStatusCancelled,
			"deleted_by":    req.UserId,
			"delete_reason": req.Reason,
			"deleted_at":    now,
		}).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:      mode,
		ReversalJournalIds: journalIds,
		Details:            fmt.Sprintf("invoice %s cancelled, %d adjustment(s) released", invoice.InvoiceNumber, len(adjustments)),
	}, nil
}

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

// deleteJobCardAction soft-deletes an empty job card. Live lines and live
// invoices re-checked under lock; either vetoes the delete.
func deleteJobCardAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var card models.JobCard
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&card).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if card.Status == models.JobCardStatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var blockers []string
	var laborCount int64
	if err := tx.Model(&models.JobLaborLine{}).Where(
		"business_id = ? AND job_card_id = ? AND status = ?",
		req.BusinessId, card.ID, models.StatusActive,
	).Count(&laborCount).Error; err != nil {
		return nil, err
	}
	if laborCount > 0 {
		blockers = append(blockers, fmt.Sprintf("job card still has %d labor line(s)", laborCount))
	}

	var partCount int64
	if err := tx.Model(&models.JobPartLine{}).Where(
		"business_id = ? AND job_card_id = ? AND status = ?",
		req.BusinessId, card.ID, models.StatusActive,
	).Count(&partCount).Error; err != nil {
		return nil, err
	}
	if partCount > 0 {
		blockers = append(blockers, fmt.Sprintf("job card still has %d part line(s)", partCount))
	}

	var invoiceCount int64
	if err := tx.Model(&models.ServiceInvoice{}).Where(
		"business_id = ? AND job_card_id = ? AND status NOT IN ?",
		req.BusinessId, card.ID,
		[]models.InvoiceStatus{models.InvoiceStatusCancelled, models.InvoiceStatusDeleted},
	).Count(&invoiceCount).Error; err != nil {
		return nil, err
	}
	if invoiceCount > 0 {
		blockers = append(blockers, fmt.Sprintf("job card has %d active invoice(s)", invoiceCount))
	}

	if len(blockers) > 0 {
		return nil, utils.NewBlockedError(blockers,
			"delete each line and cancel the invoice, then retry")
	}

	now := time.Now()
	if err := tx.Model(&models.JobCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]interface{}{
			"status":        models.JobCardStatusDeleted,
			"deleted_by":    req.UserId,
			"delete_reason": req.Reason,
			"deleted_at":    now,
		}).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode: models.ExecutionModeSoftDelete,
		Details:       fmt.Sprintf("job card %s deleted", card.JobNumber),
	}, nil
}

// deleteLaborLineAction soft-deletes one labor line off an OPEN card.
func deleteLaborLineAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var line models.JobLaborLine
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&line).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if line.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	if err := requireOpenJobCard(tx, req.BusinessId, line.JobCardId); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.JobLaborLine{}).
		Where("id = ?", line.ID).
		Update("status", models.StatusDeleted).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode: models.ExecutionModeSoftDelete,
		Details:       fmt.Sprintf("labor line LAB-%d deleted", line.ID),
	}, nil
}

// deletePartLineAction soft-deletes one part line off an OPEN card and
// returns the issued quantity to stock via a reversal movement.
func deletePartLineAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var line models.JobPartLine
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&line).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if line.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	if err := requireOpenJobCard(tx, req.BusinessId, line.JobCardId); err != nil {
		return nil, err
	}

	item, err := models.LockStockItem(tx, req.BusinessId, line.StockItemId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// Return the issued quantity. The issuing movement (if linked) is
	// flagged reversed so the pair reads as net zero.
	returnMovement := models.StockMovement{
		BusinessId:    req.BusinessId,
		BranchId:      req.BranchId,
		StockItemId:   item.ID,
		MovementDate:  time.Now(),
		Qty:           line.Qty,
		ReferenceType: string(models.EntityJobPartLine),
		ReferenceId:   line.JobCardId,
		ReferenceDetailId: line.ID,
		EntryType:     models.EntryTypeReversal,
		Note:          fmt.Sprintf("Part line PART-%d deleted: %s", line.ID, req.Reason),
	}
	if line.StockMovementId > 0 {
		returnMovement.ReversedMovementId = &line.StockMovementId
		if err := tx.Model(&models.StockMovement{}).
			Where("id = ? AND business_id = ?", line.StockMovementId, req.BusinessId).
			Update("is_reversed", true).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Create(&returnMovement).Error; err != nil {
		return nil, err
	}

	if err := models.AdjustStockQty(tx, item, line.Qty); err != nil {
		return nil, err
	}

	if err := tx.Model(&models.JobPartLine{}).
		Where("id = ?", line.ID).
		Update("status", models.StatusDeleted).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:   models.ExecutionModeSoftDeleteWithReversal,
		CreatedRecordId: returnMovement.ID,
		Details:         fmt.Sprintf("part line PART-%d deleted, %s returned to stock", line.ID, line.Qty.String()),
	}, nil
}

func requireOpenJobCard(tx *gorm.DB, businessId string, jobCardId int) error {
	var card models.JobCard
	err := tx.Where("business_id = ? AND id = ?", businessId, jobCardId).
		First(&card).Error
	if err != nil {
		return utils.ErrorRecordNotFound
	}
	switch card.Status {
	case models.JobCardStatusOpen:
		return nil
	case models.JobCardStatusClosed, models.JobCardStatusInvoiced:
		return utils.NewBlockedError(
			[]string{"job card is closed - reopen the job first"},
			"reopen the job card, then retry",
		)
	default:
		return utils.NewBlockedError([]string{fmt.Sprintf("job card is %s", card.Status)})
	}
}

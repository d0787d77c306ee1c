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

// deletePurchaseAction unwinds a supplier purchase: each line's received
// quantity comes back out of stock under row lock, the receipt journal is
// mirrored, the purchase is soft-deleted.
//
// Stock that has since been consumed makes the unwind impossible: taking
// the quantity out would drive the balance negative, so the whole
// transaction fails with a downstream-consumption error and nothing moves.
func deletePurchaseAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var purchase models.Purchase
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&purchase).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	switch purchase.Status {
	case models.StatusDeleted, models.StatusCancelled:
		return nil, utils.ErrorAlreadyDeleted
	}

	for _, line := range purchase.Lines {
		item, err := models.LockStockItem(tx, req.BusinessId, line.StockItemId)
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if item.QtyOnHand.LessThan(line.Qty) {
			return nil, utils.ErrorDownstreamConsumption
		}

		movement := models.StockMovement{
			BusinessId:        req.BusinessId,
			BranchId:          purchase.BranchId,
			StockItemId:       item.ID,
			MovementDate:      time.Now(),
			Qty:               line.Qty.Neg(),
			ReferenceType:     string(models.EntityPurchase),
			ReferenceId:       purchase.ID,
			ReferenceDetailId: line.ID,
			EntryType:         models.EntryTypeReversal,
			Note:              fmt.Sprintf("Purchase %s deleted: %s", purchase.PurchaseNumber, req.Reason),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return nil, err
		}

		// Flag the original receipt movements for this line as reversed.
		if err := tx.Model(&models.StockMovement{}).
			Where(
				"business_id = ? AND reference_type = ? AND reference_id = ? AND reference_detail_id = ? AND entry_type <> ? AND is_reversed = ?",
				req.BusinessId, string(models.EntityPurchase), purchase.ID, line.ID,
				models.EntryTypeReversal, false,
			).
			Updates(map[string]interface{}{
				"is_reversed":          true,
				"reversed_movement_id": movement.ID,
			}).Error; err != nil {
			return nil, err
		}

		if err := models.AdjustStockQty(tx, item, line.Qty.Neg()); err != nil {
			return nil, err
		}
	}

	journalIds, err := ReverseJournalsByReference(tx, req.BusinessId, models.RefTypePurchaseReceipt, purchase.ID, req.Reason)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&models.Purchase{}).
		Where("id = ?", purchase.ID).
		Updates(map[string]interface{}{
			"status":        models.StatusDeleted,
			"deleted_by":    req.UserId,
			"delete_reason": req.Reason,
			"deleted_at":    now,
		}).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:      models.ExecutionModeSoftDeleteWithReversal,
		ReversalJournalIds: journalIds,
		Details:            fmt.Sprintf("purchase %s deleted, %d line(s) unwound", purchase.PurchaseNumber, len(purchase.Lines)),
	}, nil
}

package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// purchaseAnalyzer handles delete of a supplier purchase. The stock its
// lines received must still be on hand: if any part has since been consumed
// below the purchased quantity, the delete blocks on downstream
// consumption.
type purchaseAnalyzer struct{}

func (a *purchaseAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var purchase models.Purchase
	if err := db.Preload("Lines").
		Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&purchase).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationDelete,
		MainRecord: MainRecordInfo{
			Label:     "Purchase",
			Reference: purchase.PurchaseNumber,
			Date:      purchase.PurchaseDate,
			Amount:    purchase.TotalAmount,
			Status:    string(purchase.Status),
			Note:      purchase.SupplierName,
		},
		ExecutionMode:     models.ExecutionModeSoftDeleteWithReversal,
		RecommendedAction: "Reverse stock receipts and ledger posting, then soft-delete",
	}

	switch purchase.Status {
	case models.StatusDeleted:
		summary.Blockers = append(summary.Blockers, "purchase is already deleted")
	case models.StatusCancelled:
		summary.Blockers = append(summary.Blockers, "purchase is already cancelled")
	}

	// Stock receipts: the delete unwinds each line's received quantity. A
	// line whose part has been consumed below the received quantity blocks.
	if len(purchase.Lines) > 0 {
		group := Group{
			Key:     "stock_receipts",
			Label:   "Stock Receipts",
			Warning: "Received quantities will be removed from stock",
		}
		for _, line := range purchase.Lines {
			var item models.StockItem
			onHand := decimal.Zero
			itemName := fmt.Sprintf("stock item #%d", line.StockItemId)
			if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, line.StockItemId).
				First(&item).Error; err == nil {
				onHand = item.QtyOnHand
				itemName = item.Name
			}

			row := Item{
				Reference: fmt.Sprintf("%s x %s", itemName, line.Qty.String()),
				Date:      purchase.PurchaseDate,
				Amount:    line.Amount,
				Status:    "RECEIVED",
				Related:   itemName,
			}
			if onHand.LessThan(line.Qty) {
				row.Note = fmt.Sprintf("only %s on hand; received quantity already consumed", onHand.String())
				summary.Blockers = append(summary.Blockers,
					fmt.Sprintf("%s has been consumed since this purchase - cannot unwind the receipt", itemName))
			}
			group.AddItem(row)
		}
		summary.Groups = append(summary.Groups, group)
	}

	journalGroup, err := journalDependencyGroup(ctx, scope, string(models.RefTypePurchaseReceipt), recordId)
	if err != nil {
		return nil, err
	}
	if journalGroup != nil {
		summary.Groups = append(summary.Groups, *journalGroup)
		summary.Warnings = append(summary.Warnings, "purchase expense posting will be reversed")
	}

	return summary, nil
}

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Master-data executors. The shared shape: records referenced by history
// are disabled (INACTIVE), untouched records are soft-deleted, and open
// activity blocks either way.

func deleteVehicleAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var vehicle models.Vehicle
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&vehicle).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if vehicle.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var openCount int64
	if err := tx.Model(&models.JobCard{}).Where(
		"business_id = ? AND vehicle_id = ? AND status IN ?",
		req.BusinessId, vehicle.ID,
		[]models.JobCardStatus{models.JobCardStatusOpen, models.JobCardStatusClosed},
	).Count(&openCount).Error; err != nil {
		return nil, err
	}
	if openCount > 0 {
		return nil, utils.NewBlockedError(
			[]string{fmt.Sprintf("vehicle has %d open job card(s)", openCount)},
			"close or delete the open job cards, then retry",
		)
	}

	var historyCount int64
	if err := tx.Model(&models.JobCard{}).Where(
		"business_id = ? AND vehicle_id = ?", req.BusinessId, vehicle.ID,
	).Count(&historyCount).Error; err != nil {
		return nil, err
	}

	return applyMasterRemoval(tx, &models.Vehicle{}, vehicle.ID, req, historyCount > 0,
		fmt.Sprintf("vehicle %s", vehicle.RegistrationNo))
}

func deleteCustomerAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var customer models.Customer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&customer).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if customer.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var blockers []string
	var openInvoices int64
	if err := tx.Model(&models.ServiceInvoice{}).Where(
		"business_id = ? AND customer_id = ? AND status IN ?",
		req.BusinessId, customer.ID,
		[]models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusFinalized},
	).Count(&openInvoices).Error; err != nil {
		return nil, err
	}
	if openInvoices > 0 {
		blockers = append(blockers, fmt.Sprintf("customer has %d open invoice(s)", openInvoices))
	}

	var openAdvances int64
	if err := tx.Model(&models.CustomerAdvance{}).Where(
		"business_id = ? AND customer_id = ? AND entry_type = ? AND is_reversed = ? AND amount > adjusted_amount",
		req.BusinessId, customer.ID, models.EntryTypePayment, false,
	).Count(&openAdvances).Error; err != nil {
		return nil, err
	}
	if openAdvances > 0 {
		blockers = append(blockers, fmt.Sprintf("customer has %d advance(s) with unapplied balance", openAdvances))
	}
	if len(blockers) > 0 {
		return nil, utils.NewBlockedError(blockers,
			"settle or cancel the open documents, then retry")
	}

	var historyCount int64
	if err := tx.Model(&models.ServiceInvoice{}).Where(
		"business_id = ? AND customer_id = ?", req.BusinessId, customer.ID,
	).Count(&historyCount).Error; err != nil {
		return nil, err
	}

	return applyMasterRemoval(tx, &models.Customer{}, customer.ID, req, historyCount > 0,
		fmt.Sprintf("customer %s", customer.Name))
}

func deleteStockItemAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	item, err := models.LockStockItem(tx, req.BusinessId, req.RecordId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if item.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var activeLines int64
	if err := tx.Model(&models.JobPartLine{}).Where(
		"business_id = ? AND stock_item_id = ? AND status = ?",
		req.BusinessId, item.ID, models.StatusActive,
	).Count(&activeLines).Error; err != nil {
		return nil, err
	}
	if activeLines > 0 {
		return nil, utils.NewBlockedError(
			[]string{fmt.Sprintf("stock item is on %d active job part line(s)", activeLines)},
			"remove the part lines, then retry",
		)
	}

	var movementCount int64
	if err := tx.Model(&models.StockMovement{}).Where(
		"business_id = ? AND stock_item_id = ?", req.BusinessId, item.ID,
	).Count(&movementCount).Error; err != nil {
		return nil, err
	}

	mode := models.ExecutionModeSoftDelete
	status := models.StatusDeleted
	if movementCount > 0 {
		mode = models.ExecutionModeDisableOnly
		status = models.StatusInactive
	}
	if err := tx.Model(&models.StockItem{}).
		Where("id = ?", item.ID).
		Update("status", status).Error; err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode: mode,
		Details:       fmt.Sprintf("stock item %s %s", item.Name, strings.ToLower(string(status))),
	}, nil
}

func deletePaymentModeAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var mode models.PaymentMode
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&mode).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if mode.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var paymentCount int64
	if err := tx.Model(&models.InvoicePayment{}).Where(
		"business_id = ? AND payment_mode = ?", req.BusinessId, mode.Code,
	).Count(&paymentCount).Error; err != nil {
		return nil, err
	}
	var advanceCount int64
	if err := tx.Model(&models.CustomerAdvance{}).Where(
		"business_id = ? AND payment_mode = ?", req.BusinessId, mode.Code,
	).Count(&advanceCount).Error; err != nil {
		return nil, err
	}

	return applyMasterRemoval(tx, &models.PaymentMode{}, mode.ID, req, paymentCount+advanceCount > 0,
		fmt.Sprintf("payment mode %s", mode.Code))
}

func deleteServiceTypeAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var serviceType models.ServiceType
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&serviceType).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if serviceType.Status == models.StatusDeleted {
		return nil, utils.ErrorAlreadyDeleted
	}

	var activeLines int64
	if err := tx.Model(&models.JobLaborLine{}).Where(
		"business_id = ? AND service_type_id = ? AND status = ?",
		req.BusinessId, serviceType.ID, models.StatusActive,
	).Count(&activeLines).Error; err != nil {
		return nil, err
	}
	if activeLines > 0 {
		return nil, utils.NewBlockedError(
			[]string{fmt.Sprintf("service type is on %d active job labor line(s)", activeLines)},
			"remove or rebill the labor lines, then retry",
		)
	}

	var historyCount int64
	if err := tx.Model(&models.JobLaborLine{}).Where(
		"business_id = ? AND service_type_id = ?", req.BusinessId, serviceType.ID,
	).Count(&historyCount).Error; err != nil {
		return nil, err
	}

	return applyMasterRemoval(tx, &models.ServiceType{}, serviceType.ID, req, historyCount > 0,
		fmt.Sprintf("service type %s", serviceType.Name))
}

// reverseAdvanceAction nets a customer advance to zero: negated REVERSAL
// row, original flagged, ledger mirrored. Active adjustments block.
func reverseAdvanceAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var advance models.CustomerAdvance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&advance).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if advance.EntryType == models.EntryTypeReversal {
		return nil, errReverseReversal
	}
	if advance.IsReversed {
		return nil, utils.ErrorAlreadyReversed
	}

	var activeAdjustments int64
	if err := tx.Model(&models.AdvanceAdjustment{}).Where(
		"business_id = ? AND advance_id = ? AND status = ?",
		req.BusinessId, advance.ID, models.StatusActive,
	).Count(&activeAdjustments).Error; err != nil {
		return nil, err
	}
	if activeAdjustments > 0 {
		return nil, utils.NewBlockedError(
			[]string{fmt.Sprintf("advance has %d active adjustment(s) applied to invoices", activeAdjustments)},
			"cancel the invoices the advance was applied to, then retry",
		)
	}

	reversal := models.CustomerAdvance{
		BusinessId:        req.BusinessId,
		BranchId:          advance.BranchId,
		CustomerId:        advance.CustomerId,
		ReceiptDate:       time.Now(),
		Amount:            advance.Amount.Neg(),
		PaymentMode:       advance.PaymentMode,
		EntryType:         models.EntryTypeReversal,
		ReversedAdvanceId: &advance.ID,
	}
	if err := tx.Create(&reversal).Error; err != nil {
		return nil, err
	}

	result := tx.Model(&models.CustomerAdvance{}).
		Where("id = ? AND is_reversed = ?", advance.ID, false).
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

	journalIds, err := ReverseJournalsByReference(tx, req.BusinessId, models.RefTypeAdvanceReceipt, advance.ID, req.Reason)
	if err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:      models.ExecutionModeFinancialReversal,
		ReversalJournalIds: journalIds,
		CreatedRecordId:    reversal.ID,
		Details:            fmt.Sprintf("advance ADV-%d reversed by ADV-%d", advance.ID, reversal.ID),
	}, nil
}

// reversePayrollAction reverses an unpaid payroll accrual.
func reversePayrollAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	var entry models.PayrollEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", req.BusinessId, req.RecordId).
		First(&entry).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if entry.IsReversed {
		return nil, utils.ErrorAlreadyReversed
	}
	if entry.IsPaid {
		return nil, utils.NewBlockedError(
			[]string{"payroll entry has been paid out - recover the payment before reversing"},
		)
	}

	result := tx.Model(&models.PayrollEntry{}).
		Where("id = ? AND is_reversed = ?", entry.ID, false).
		Updates(map[string]interface{}{
			"is_reversed":     true,
			"reversal_reason": req.Reason,
			"status":          models.StatusCancelled,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, utils.ErrorAlreadyReversed
	}

	journalIds, err := ReverseJournalsByReference(tx, req.BusinessId, models.RefTypePayrollAccrual, entry.ID, req.Reason)
	if err != nil {
		return nil, err
	}

	return &ActionResult{
		ExecutionMode:      models.ExecutionModeFinancialReversal,
		ReversalJournalIds: journalIds,
		Details:            fmt.Sprintf("payroll accrual for %s %d/%02d reversed", entry.StaffName, entry.PeriodYear, entry.PeriodMonth),
	}, nil
}

// reverseJournalAction reverses one ledger journal directly, for the
// auto-cascade actions surfaced in previews.
func reverseJournalAction(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error) {
	reversal, err := ReverseAccountJournal(tx, req.BusinessId, req.RecordId, req.Reason)
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		ExecutionMode:      models.ExecutionModeFinancialReversal,
		ReversalJournalIds: []int{reversal.ID},
		CreatedRecordId:    reversal.ID,
		Details:            fmt.Sprintf("journal JRN-%d reversed by JRN-%d", req.RecordId, reversal.ID),
	}, nil
}

// applyMasterRemoval disables or soft-deletes a master record depending on
// whether history references it.
func applyMasterRemoval(tx *gorm.DB, model interface{}, id int, req ActionRequest, hasHistory bool, label string) (*ActionResult, error) {
	now := time.Now()
	mode := models.ExecutionModeSoftDelete
	status := models.StatusDeleted
	if hasHistory {
		mode = models.ExecutionModeDisableOnly
		status = models.StatusInactive
	}

	if err := tx.Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"deleted_by":    req.UserId,
			"delete_reason": req.Reason,
			"deleted_at":    now,
		}).Error; err != nil {
		return nil, err
	}

	verb := "deleted"
	if hasHistory {
		verb = "disabled (history preserved)"
	}
	return &ActionResult{
		ExecutionMode: mode,
		Details:       fmt.Sprintf("%s %s", label, verb),
	}, nil
}

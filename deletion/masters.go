package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// vehicleAnalyzer handles delete of a vehicle. Vehicles with service
// history are disabled rather than deleted so history stays navigable.
type vehicleAnalyzer struct{}

func (a *vehicleAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var vehicle models.Vehicle
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&vehicle).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationDelete,
		MainRecord: MainRecordInfo{
			Label:     "Vehicle",
			Reference: vehicle.RegistrationNo,
			Date:      vehicle.CreatedAt,
			Status:    string(vehicle.Status),
			Note:      fmt.Sprintf("%s %s", vehicle.Make, vehicle.Model),
		},
		ExecutionMode: models.ExecutionModeSoftDelete,
	}

	if vehicle.Status == models.StatusDeleted {
		summary.Blockers = append(summary.Blockers, "vehicle is already deleted")
	}

	// Open job cards block; completed history only downgrades delete to
	// disable.
	var openCards []models.JobCard
	if err := db.Where(
		"business_id = ? AND vehicle_id = ? AND status IN ?",
		scope.BusinessId, recordId,
		[]models.JobCardStatus{models.JobCardStatusOpen, models.JobCardStatusClosed},
	).Find(&openCards).Error; err != nil {
		return nil, err
	}
	if len(openCards) > 0 {
		group := Group{Key: "open_job_cards", Label: "Open Job Cards"}
		for _, c := range openCards {
			group.AddItem(Item{
				Reference: c.JobNumber,
				Date:      c.OpenedAt,
				Status:    string(c.Status),
				Note:      c.Complaint,
			})
		}
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("vehicle has %d open job card(s)", len(openCards)))
		summary.Groups = append(summary.Groups, group)
	}

	var historyCount int64
	if err := db.Model(&models.JobCard{}).Where(
		"business_id = ? AND vehicle_id = ? AND status IN ?",
		scope.BusinessId, recordId,
		[]models.JobCardStatus{models.JobCardStatusInvoiced, models.JobCardStatusCancelled},
	).Count(&historyCount).Error; err != nil {
		return nil, err
	}
	if historyCount > 0 {
		summary.ExecutionMode = models.ExecutionModeDisableOnly
		summary.Warnings = append(summary.Warnings,
			"vehicle has service history and will be disabled, not deleted")
		summary.RecommendedAction = "Disable the vehicle; history stays intact"
	}

	return summary, nil
}

// customerAnalyzer handles delete of a customer. Any financial history at
// all (invoices, advances) forces DISABLE_ONLY; outstanding money blocks.
type customerAnalyzer struct{}

func (a *customerAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var customer models.Customer
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&customer).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationDelete,
		MainRecord: MainRecordInfo{
			Label:     "Customer",
			Reference: customer.Name,
			Date:      customer.CreatedAt,
			Status:    string(customer.Status),
		},
		ExecutionMode: models.ExecutionModeSoftDelete,
	}

	if customer.Status == models.StatusDeleted {
		summary.Blockers = append(summary.Blockers, "customer is already deleted")
	}

	// Unpaid invoices block outright.
	var openInvoices []models.ServiceInvoice
	if err := db.Where(
		"business_id = ? AND customer_id = ? AND status IN ?",
		scope.BusinessId, recordId,
		[]models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusFinalized},
	).Find(&openInvoices).Error; err != nil {
		return nil, err
	}
	if len(openInvoices) > 0 {
		group := Group{Key: "open_invoices", Label: "Open Invoices"}
		for _, inv := range openInvoices {
			group.AddItem(Item{
				Reference: inv.InvoiceNumber,
				Date:      inv.InvoiceDate,
				Amount:    inv.OutstandingAmount(),
				Status:    string(inv.Status),
			})
		}
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("customer has %d open invoice(s)", len(openInvoices)))
		summary.Groups = append(summary.Groups, group)
	}

	// Advances with unadjusted balance block until reversed or applied.
	var advances []models.CustomerAdvance
	if err := db.Where(
		"business_id = ? AND customer_id = ? AND entry_type = ? AND is_reversed = ?",
		scope.BusinessId, recordId, models.EntryTypePayment, false,
	).Find(&advances).Error; err != nil {
		return nil, err
	}
	openAdvances := 0
	if len(advances) > 0 {
		group := Group{Key: "advances", Label: "Customer Advances"}
		for _, adv := range advances {
			item := Item{
				Reference: fmt.Sprintf("ADV-%d", adv.ID),
				Date:      adv.ReceiptDate,
				Amount:    adv.UnadjustedAmount(),
				Status:    string(adv.Status),
			}
			if adv.UnadjustedAmount().IsPositive() {
				openAdvances++
				item.Actions = append(item.Actions, DependencyAction{
					Label:               "Reverse advance",
					Entity:              models.EntityCustomerAdvance,
					RecordId:            adv.ID,
					Operation:           models.OperationReverse,
					Enabled:             true,
					RequireBeforeParent: true,
					Hint:                "Unapplied advance must be refunded or reversed first",
				})
			}
			group.AddItem(item)
		}
		summary.Groups = append(summary.Groups, group)
	}
	if openAdvances > 0 {
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("customer has %d advance(s) with unapplied balance", openAdvances))
	}

	// Any paid/cancelled history means the row is referenced from postings.
	var historyCount int64
	if err := db.Model(&models.ServiceInvoice{}).Where(
		"business_id = ? AND customer_id = ?", scope.BusinessId, recordId,
	).Count(&historyCount).Error; err != nil {
		return nil, err
	}
	if historyCount > 0 || len(advances) > 0 {
		summary.ExecutionMode = models.ExecutionModeDisableOnly
		summary.Warnings = append(summary.Warnings,
			"customer has financial history and will be disabled, not deleted")
	}

	return summary, nil
}

// advanceAnalyzer handles reversal of a customer advance. An advance with
// active adjustments cannot be reversed until those are released by
// cancelling the invoices they were applied to.
type advanceAnalyzer struct{}

func (a *advanceAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var advance models.CustomerAdvance
	if err := db.Preload("Adjustments").
		Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&advance).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationReverse,
		MainRecord: MainRecordInfo{
			Label:     "Customer Advance",
			Reference: fmt.Sprintf("ADV-%d", advance.ID),
			Date:      advance.ReceiptDate,
			Amount:    advance.Amount,
			Status:    string(advance.Status),
		},
		ExecutionMode:     models.ExecutionModeFinancialReversal,
		RecommendedAction: "Reverse the advance and its ledger posting",
	}

	if advance.EntryType == models.EntryTypeReversal {
		summary.Blockers = append(summary.Blockers, "a reversal entry cannot itself be reversed")
	}
	if advance.IsReversed {
		summary.Blockers = append(summary.Blockers, "advance is already reversed")
	}

	activeAdjustments := 0
	if len(advance.Adjustments) > 0 {
		group := Group{Key: "adjustments", Label: "Invoice Adjustments"}
		for _, adj := range advance.Adjustments {
			item := Item{
				Reference: fmt.Sprintf("ADJ-%d", adj.ID),
				Date:      adj.CreatedAt,
				Amount:    adj.Amount,
				Status:    string(adj.Status),
				Related:   fmt.Sprintf("invoice #%d", adj.InvoiceId),
			}
			if adj.Status == models.StatusActive {
				activeAdjustments++
				item.Actions = append(item.Actions, DependencyAction{
					Label:               "Cancel invoice",
					Entity:              models.EntityInvoice,
					RecordId:            adj.InvoiceId,
					Operation:           models.OperationCancel,
					Enabled:             true,
					RequireBeforeParent: true,
					Hint:                "Cancelling the invoice releases the applied advance",
				})
			}
			group.AddItem(item)
		}
		summary.Groups = append(summary.Groups, group)
	}
	if activeAdjustments > 0 {
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("advance has %d active adjustment(s) applied to invoices", activeAdjustments))
	}

	journalGroup, err := journalDependencyGroup(ctx, scope, string(models.RefTypeAdvanceReceipt), recordId)
	if err != nil {
		return nil, err
	}
	if journalGroup != nil {
		summary.Groups = append(summary.Groups, *journalGroup)
	}

	return summary, nil
}

// payrollAnalyzer handles reversal of a payroll entry. Unpaid accruals
// reverse cleanly; a paid entry blocks until the payment is handled outside
// this flow.
type payrollAnalyzer struct{}

func (a *payrollAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var entry models.PayrollEntry
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&entry).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationReverse,
		MainRecord: MainRecordInfo{
			Label:     "Payroll Entry",
			Reference: fmt.Sprintf("%s %d/%02d", entry.StaffName, entry.PeriodYear, entry.PeriodMonth),
			Date:      entry.CreatedAt,
			Amount:    entry.GrossAmount,
			Status:    string(entry.Status),
		},
		ExecutionMode:     models.ExecutionModeFinancialReversal,
		RecommendedAction: "Reverse the payroll accrual",
	}

	if entry.IsReversed {
		summary.Blockers = append(summary.Blockers, "payroll entry is already reversed")
	}
	if entry.IsPaid {
		summary.Blockers = append(summary.Blockers,
			"payroll entry has been paid out - recover the payment before reversing")
	}

	journalGroup, err := journalDependencyGroup(ctx, scope, string(models.RefTypePayrollAccrual), recordId)
	if err != nil {
		return nil, err
	}
	if journalGroup != nil {
		summary.Groups = append(summary.Groups, *journalGroup)
	}

	return summary, nil
}

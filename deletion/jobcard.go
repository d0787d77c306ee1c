package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// jobCardAnalyzer handles delete of a job card. A card still carrying
// active labor/part lines blocks until each line is removed; an invoiced
// card blocks until its invoice is cancelled.
type jobCardAnalyzer struct{}

func (a *jobCardAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	var card models.JobCard
	if err := db.Preload("LaborLines").Preload("PartLines").
		Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&card).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation: models.OperationDelete,
		MainRecord: MainRecordInfo{
			Label:     "Job Card",
			Reference: card.JobNumber,
			Date:      card.OpenedAt,
			Status:    string(card.Status),
			Note:      card.Complaint,
		},
		ExecutionMode:     models.ExecutionModeSoftDeleteWithReversal,
		RecommendedAction: "Remove lines, then soft-delete the job card",
	}

	if card.Status == models.JobCardStatusDeleted {
		summary.Blockers = append(summary.Blockers, "job card is already deleted")
	}

	// Invoiced cards are frozen behind their invoice.
	var invoices []models.ServiceInvoice
	if err := db.Where(
		"business_id = ? AND job_card_id = ? AND status NOT IN ?",
		scope.BusinessId, recordId,
		[]models.InvoiceStatus{models.InvoiceStatusCancelled, models.InvoiceStatusDeleted},
	).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) > 0 {
		group := Group{Key: "invoices", Label: "Invoices"}
		for _, inv := range invoices {
			group.AddItem(Item{
				Reference: inv.InvoiceNumber,
				Date:      inv.InvoiceDate,
				Amount:    inv.GrandTotal,
				Status:    string(inv.Status),
				Actions: []DependencyAction{{
					Label:               "Cancel invoice",
					Entity:              models.EntityInvoice,
					RecordId:            inv.ID,
					Operation:           models.OperationCancel,
					Enabled:             true,
					RequireBeforeParent: true,
					Hint:                "The invoice raised from this job card must be cancelled first",
				}},
			})
		}
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("job card has %d active invoice(s)", len(invoices)))
		summary.Groups = append(summary.Groups, group)
	}

	laborCount, partCount := card.ActiveLineCounts()
	if laborCount > 0 {
		group := Group{Key: "labor_lines", Label: "Labor Lines"}
		for _, l := range card.LaborLines {
			if l.Status != models.StatusActive {
				continue
			}
			group.AddItem(Item{
				Reference: fmt.Sprintf("LAB-%d", l.ID),
				Date:      l.CreatedAt,
				Amount:    l.Amount,
				Status:    string(l.Status),
				Note:      l.Description,
				Actions: []DependencyAction{{
					Label:               "Delete labor line",
					Entity:              models.EntityJobLaborLine,
					RecordId:            l.ID,
					Operation:           models.OperationDelete,
					Enabled:             true,
					RequireBeforeParent: true,
				}},
			})
		}
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("job card still has %d labor line(s)", laborCount))
		summary.Groups = append(summary.Groups, group)
	}

	if partCount > 0 {
		group := Group{
			Key:     "part_lines",
			Label:   "Part Lines",
			Warning: "Deleting a part line returns the issued quantity to stock",
		}
		for _, p := range card.PartLines {
			if p.Status != models.StatusActive {
				continue
			}
			group.AddItem(Item{
				Reference: fmt.Sprintf("PART-%d", p.ID),
				Date:      p.CreatedAt,
				Amount:    p.Amount,
				Status:    string(p.Status),
				Related:   fmt.Sprintf("stock item #%d", p.StockItemId),
				Actions: []DependencyAction{{
					Label:               "Delete part line",
					Entity:              models.EntityJobPartLine,
					RecordId:            p.ID,
					Operation:           models.OperationDelete,
					Enabled:             p.StockItemId > 0,
					RequireBeforeParent: true,
					Hint:                "Returns the issued quantity to stock",
				}},
			})
		}
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("job card still has %d part line(s)", partCount))
		summary.Groups = append(summary.Groups, group)
	}

	return summary, nil
}

// jobLineAnalyzer covers single labor/part lines. Lines only come off OPEN
// cards; anything else must be reopened first.
type jobLineAnalyzer struct {
	labor bool
}

func (a *jobLineAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	summary := &DeletionSummary{
		Operation:     models.OperationDelete,
		ExecutionMode: models.ExecutionModeSoftDelete,
	}

	var jobCardId int
	if a.labor {
		var line models.JobLaborLine
		if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
			First(&line).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		summary.MainRecord = MainRecordInfo{
			Label:     "Job Labor Line",
			Reference: fmt.Sprintf("LAB-%d", line.ID),
			Date:      line.CreatedAt,
			Amount:    line.Amount,
			Status:    string(line.Status),
			Note:      line.Description,
		}
		if line.Status == models.StatusDeleted {
			summary.Blockers = append(summary.Blockers, "labor line is already deleted")
		}
		jobCardId = line.JobCardId
	} else {
		var line models.JobPartLine
		if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
			First(&line).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		summary.MainRecord = MainRecordInfo{
			Label:     "Job Part Line",
			Reference: fmt.Sprintf("PART-%d", line.ID),
			Date:      line.CreatedAt,
			Amount:    line.Amount,
			Status:    string(line.Status),
		}
		if line.Status == models.StatusDeleted {
			summary.Blockers = append(summary.Blockers, "part line is already deleted")
		}
		summary.Warnings = append(summary.Warnings, "issued quantity will be returned to stock")
		summary.ExecutionMode = models.ExecutionModeSoftDeleteWithReversal
		jobCardId = line.JobCardId
	}

	var card models.JobCard
	if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, jobCardId).
		First(&card).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if blocker := jobLineStatusBlocker(card.Status); blocker != "" {
		summary.Blockers = append(summary.Blockers, blocker)
	}

	return summary, nil
}

// jobLineStatusBlocker is the rule shared by analysis and live execution:
// lines only change on OPEN cards.
func jobLineStatusBlocker(status models.JobCardStatus) string {
	switch status {
	case models.JobCardStatusOpen:
		return ""
	case models.JobCardStatusClosed, models.JobCardStatusInvoiced:
		return "job card is closed - reopen the job first"
	default:
		return fmt.Sprintf("job card is %s", status)
	}
}

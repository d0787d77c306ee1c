package deletion

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
)

// EntityDescriptor is a declarative analyzer for master-data entities with
// no bespoke rules: load the row, run a set of dependency probes, derive
// the execution mode from whether anything referenced it.
type EntityDescriptor struct {
	Label string

	// Load fetches the record and returns its display snapshot plus status.
	Load func(db *gorm.DB, scope Scope, recordId int) (MainRecordInfo, models.RecordStatus, error)

	// Probes each inspect one dependent table.
	Probes []DependencyProbe
}

// DependencyProbe counts dependents of one class. Blocking probes add a
// blocker when the count is positive; non-blocking probes only force
// DISABLE_ONLY so history stays navigable.
type DependencyProbe struct {
	Key      string
	Label    string
	Blocking bool

	Count func(db *gorm.DB, scope Scope, recordId int) (int64, error)
}

type genericAnalyzer struct {
	desc EntityDescriptor
}

// NewGenericAnalyzer builds an analyzer from a descriptor.
func NewGenericAnalyzer(desc EntityDescriptor) Analyzer {
	return &genericAnalyzer{desc: desc}
}

func (a *genericAnalyzer) Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	db := config.GetDB().WithContext(ctx)

	main, status, err := a.desc.Load(db, scope, recordId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	summary := &DeletionSummary{
		Operation:     models.OperationDelete,
		MainRecord:    main,
		ExecutionMode: models.ExecutionModeSoftDelete,
	}

	if status == models.StatusDeleted {
		summary.Blockers = append(summary.Blockers,
			fmt.Sprintf("%s is already deleted", a.desc.Label))
	}

	referenced := false
	for _, probe := range a.desc.Probes {
		count, err := probe.Count(db, scope, recordId)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			continue
		}
		referenced = true
		summary.Groups = append(summary.Groups, Group{
			Key:   probe.Key,
			Label: probe.Label,
			Count: int(count),
		})
		if probe.Blocking {
			summary.Blockers = append(summary.Blockers,
				fmt.Sprintf("%s is referenced by %d %s", a.desc.Label, count, probe.Label))
		}
	}
	if referenced {
		summary.ExecutionMode = models.ExecutionModeDisableOnly
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("%s has usage history and will be disabled, not deleted", a.desc.Label))
	}

	return summary, nil
}

// paymentModeDescriptor: a tender type ever used on a receipt is disabled,
// never deleted, so old payments keep resolving their mode.
func paymentModeDescriptor() EntityDescriptor {
	return EntityDescriptor{
		Label: "payment mode",
		Load: func(db *gorm.DB, scope Scope, recordId int) (MainRecordInfo, models.RecordStatus, error) {
			var mode models.PaymentMode
			if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
				First(&mode).Error; err != nil {
				return MainRecordInfo{}, "", err
			}
			return MainRecordInfo{
				Label:     "Payment Mode",
				Reference: mode.Name,
				Date:      mode.CreatedAt,
				Status:    string(mode.Status),
				Note:      mode.Code,
			}, mode.Status, nil
		},
		Probes: []DependencyProbe{
			{
				Key:   "invoice_payments",
				Label: "invoice payment(s)",
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					code, err := paymentModeCode(db, scope, recordId)
					if err != nil {
						return 0, err
					}
					var count int64
					err = db.Model(&models.InvoicePayment{}).Where(
						"business_id = ? AND payment_mode = ?",
						scope.BusinessId, code,
					).Count(&count).Error
					return count, err
				},
			},
			{
				Key:   "advance_receipts",
				Label: "advance receipt(s)",
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					code, err := paymentModeCode(db, scope, recordId)
					if err != nil {
						return 0, err
					}
					var count int64
					err = db.Model(&models.CustomerAdvance{}).Where(
						"business_id = ? AND payment_mode = ?",
						scope.BusinessId, code,
					).Count(&count).Error
					return count, err
				},
			},
		},
	}
}

func paymentModeCode(db *gorm.DB, scope Scope, recordId int) (string, error) {
	var mode models.PaymentMode
	err := db.Select("code").
		Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
		First(&mode).Error
	return mode.Code, err
}

// serviceTypeDescriptor: a catalog entry on active labor lines blocks;
// billed history only downgrades delete to disable.
func serviceTypeDescriptor() EntityDescriptor {
	return EntityDescriptor{
		Label: "service type",
		Load: func(db *gorm.DB, scope Scope, recordId int) (MainRecordInfo, models.RecordStatus, error) {
			var st models.ServiceType
			if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
				First(&st).Error; err != nil {
				return MainRecordInfo{}, "", err
			}
			return MainRecordInfo{
				Label:     "Service Type",
				Reference: st.Name,
				Date:      st.CreatedAt,
				Amount:    st.DefaultRate,
				Status:    string(st.Status),
			}, st.Status, nil
		},
		Probes: []DependencyProbe{
			{
				Key:      "active_labor_lines",
				Label:    "active job labor line(s)",
				Blocking: true,
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					var count int64
					err := db.Model(&models.JobLaborLine{}).Where(
						"business_id = ? AND service_type_id = ? AND status = ?",
						scope.BusinessId, recordId, models.StatusActive,
					).Count(&count).Error
					return count, err
				},
			},
			{
				Key:   "labor_lines",
				Label: "job labor line(s)",
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					var count int64
					err := db.Model(&models.JobLaborLine{}).Where(
						"business_id = ? AND service_type_id = ?",
						scope.BusinessId, recordId,
					).Count(&count).Error
					return count, err
				},
			},
		},
	}
}

// stockItemDescriptor: a part with movement history is disabled; live job
// part lines still pointing at it block.
func stockItemDescriptor() EntityDescriptor {
	return EntityDescriptor{
		Label: "stock item",
		Load: func(db *gorm.DB, scope Scope, recordId int) (MainRecordInfo, models.RecordStatus, error) {
			var item models.StockItem
			if err := db.Where("business_id = ? AND id = ?", scope.BusinessId, recordId).
				First(&item).Error; err != nil {
				return MainRecordInfo{}, "", err
			}
			return MainRecordInfo{
				Label:     "Stock Item",
				Reference: item.Name,
				Date:      item.CreatedAt,
				Amount:    item.UnitPrice,
				Status:    string(item.Status),
				Note:      item.PartNumber,
			}, item.Status, nil
		},
		Probes: []DependencyProbe{
			{
				Key:      "active_part_lines",
				Label:    "active job part line(s)",
				Blocking: true,
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					var count int64
					err := db.Model(&models.JobPartLine{}).Where(
						"business_id = ? AND stock_item_id = ? AND status = ?",
						scope.BusinessId, recordId, models.StatusActive,
					).Count(&count).Error
					return count, err
				},
			},
			{
				Key:   "stock_movements",
				Label: "stock movement(s)",
				Count: func(db *gorm.DB, scope Scope, recordId int) (int64, error) {
					var count int64
					err := db.Model(&models.StockMovement{}).Where(
						"business_id = ? AND stock_item_id = ?",
						scope.BusinessId, recordId,
					).Count(&count).Error
					return count, err
				},
			},
		},
	}
}

package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/models/reports"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
)

// ActionRequest is one executable mutation, already cleared by the
// confirmation gate (or invoked as a dependency action cascade step).
type ActionRequest struct {
	BusinessId string
	BranchId   int
	UserId     int
	RecordId   int
	Reason     string
}

// ActionResult reports what the executor actually did. Executors re-derive
// live state under lock, so the result can differ from the preview.
type ActionResult struct {
	Entity        models.EntityType    `json:"entity"`
	RecordId      int                  `json:"record_id"`
	Operation     models.Operation     `json:"operation"`
	ExecutionMode models.ExecutionMode `json:"execution_mode"`

	ReversalJournalIds []int  `json:"reversal_journal_ids,omitempty"`
	CreatedRecordId    int    `json:"created_record_id,omitempty"`
	Details            string `json:"details,omitempty"`
}

// ActionFunc runs one entity operation inside the given transaction. It
// must re-check every guard against live rows; the preview summary is
// advisory only.
type ActionFunc func(ctx context.Context, tx *gorm.DB, req ActionRequest) (*ActionResult, error)

type actionKey struct {
	entity    models.EntityType
	operation models.Operation
}

// ActionRegistry maps (entity, operation) pairs to executors. Like the
// analyzer registry it is a constructed instance, not package state.
type ActionRegistry struct {
	actions map[actionKey]ActionFunc
}

func NewActionRegistry() *ActionRegistry {
	r := &ActionRegistry{actions: make(map[actionKey]ActionFunc)}

	r.Register(models.EntityInvoice, models.OperationCancel, cancelInvoiceAction)
	r.Register(models.EntityInvoice, models.OperationDelete, cancelInvoiceAction)
	r.Register(models.EntityInvoicePayment, models.OperationReverse, reversePaymentAction)
	r.Register(models.EntityJobCard, models.OperationDelete, deleteJobCardAction)
	r.Register(models.EntityJobLaborLine, models.OperationDelete, deleteLaborLineAction)
	r.Register(models.EntityJobPartLine, models.OperationDelete, deletePartLineAction)
	r.Register(models.EntityPurchase, models.OperationDelete, deletePurchaseAction)
	r.Register(models.EntityVehicle, models.OperationDelete, deleteVehicleAction)
	r.Register(models.EntityCustomer, models.OperationDelete, deleteCustomerAction)
	r.Register(models.EntityCustomerAdvance, models.OperationReverse, reverseAdvanceAction)
	r.Register(models.EntityPayrollEntry, models.OperationReverse, reversePayrollAction)
	r.Register(models.EntityStockItem, models.OperationDelete, deleteStockItemAction)
	r.Register(models.EntityPaymentMode, models.OperationDelete, deletePaymentModeAction)
	r.Register(models.EntityServiceType, models.OperationDelete, deleteServiceTypeAction)
	r.Register(models.EntityAccountJournal, models.OperationAuto, reverseJournalAction)
	r.Register(models.EntityAccountJournal, models.OperationReverse, reverseJournalAction)

	return r
}

func (r *ActionRegistry) Register(entity models.EntityType, operation models.Operation, fn ActionFunc) {
	r.actions[actionKey{entity: entity, operation: operation}] = fn
}

// Supports reports whether an executor exists, without running anything.
func (r *ActionRegistry) Supports(entity models.EntityType, operation models.Operation) bool {
	_, ok := r.actions[actionKey{entity: entity, operation: operation}]
	return ok
}

// Execute runs one action in its own transaction: Redis business lock as a
// best-effort fence, MySQL advisory posting lock as the authoritative one,
// then the executor. The audit row is written after commit - never inside
// the transaction it describes.
func (r *ActionRegistry) Execute(ctx context.Context, entity models.EntityType, operation models.Operation, recordId int, reason string) (*ActionResult, error) {
	fn, ok := r.actions[actionKey{entity: entity, operation: operation}]
	if !ok {
		return nil, utils.ErrorActionNotSupported
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorPermissionDenied
	}
	branchId, _ := utils.GetBranchIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)

	release, err := utils.BusinessLock(ctx, businessId, "deletion", "actions.go", "Execute")
	if err != nil {
		return nil, err
	}
	defer release()

	req := ActionRequest{
		BusinessId: businessId,
		BranchId:   branchId,
		UserId:     userId,
		RecordId:   recordId,
		Reason:     reason,
	}

	var result *ActionResult
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		releaseLock, err := AcquirePostingLock(tx, businessId)
		if err != nil {
			return err
		}
		defer releaseLock()

		result, err = fn(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Entity = entity
	result.RecordId = recordId
	result.Operation = operation

	models.RecordAudit(ctx, "deletion", string(operation), string(entity), recordId,
		fmt.Sprintf("mode=%s reason=%s journals=%v", result.ExecutionMode, reason, result.ReversalJournalIds))

	if err := reports.InvalidateBusinessCaches(businessId); err != nil {
		config.LogError(config.GetLogger(), "actions.go", "Execute",
			"invalidate report caches", businessId, err)
	}

	return result, nil
}

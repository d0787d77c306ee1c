package deletion

import (
	"context"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
)

// Scope pins an analysis to the tenant and branch it was requested in.
type Scope struct {
	BusinessId string
	BranchId   int
}

// Options tune a single analysis call.
type Options struct {
	// Operation the caller intends (delete, cancel, reverse). Analyzers may
	// override it when the entity only supports one operation.
	Operation models.Operation
}

// Analyzer computes the deletion summary for one entity type. Analysis is
// read-only and advisory: nothing is locked here, and executors re-derive
// live state before mutating.
type Analyzer interface {
	Analyze(ctx context.Context, recordId int, scope Scope, opts Options) (*DeletionSummary, error)
}

// Registry maps entity types to their analyzers. Constructed once per
// process and passed by reference; no package-level singleton.
type Registry struct {
	analyzers map[models.EntityType]Analyzer
}

// NewRegistry wires every supported entity. Master-data entities with no
// bespoke rules ride on the generic descriptor analyzer.
func NewRegistry() *Registry {
	r := &Registry{analyzers: make(map[models.EntityType]Analyzer)}

	r.Register(models.EntityInvoice, &invoiceAnalyzer{})
	r.Register(models.EntityInvoicePayment, &paymentAnalyzer{})
	r.Register(models.EntityJobCard, &jobCardAnalyzer{})
	r.Register(models.EntityJobLaborLine, &jobLineAnalyzer{labor: true})
	r.Register(models.EntityJobPartLine, &jobLineAnalyzer{labor: false})
	r.Register(models.EntityPurchase, &purchaseAnalyzer{})
	r.Register(models.EntityVehicle, &vehicleAnalyzer{})
	r.Register(models.EntityCustomer, &customerAnalyzer{})
	r.Register(models.EntityCustomerAdvance, &advanceAnalyzer{})
	r.Register(models.EntityPayrollEntry, &payrollAnalyzer{})
	r.Register(models.EntityStockItem, NewGenericAnalyzer(stockItemDescriptor()))
	r.Register(models.EntityPaymentMode, NewGenericAnalyzer(paymentModeDescriptor()))
	r.Register(models.EntityServiceType, NewGenericAnalyzer(serviceTypeDescriptor()))

	return r
}

func (r *Registry) Register(entity models.EntityType, a Analyzer) {
	r.analyzers[entity] = a
}

// Analyze dispatches to the registered analyzer and normalizes the result.
func (r *Registry) Analyze(ctx context.Context, entity models.EntityType, recordId int, scope Scope, opts Options) (*DeletionSummary, error) {
	analyzer, ok := r.analyzers[entity]
	if !ok {
		return nil, utils.ErrorUnsupportedEntity
	}
	if recordId <= 0 {
		return nil, utils.ErrorRecordNotFound
	}

	summary, err := analyzer.Analyze(ctx, recordId, scope, opts)
	if err != nil {
		return nil, err
	}

	summary.Entity = entity
	summary.RecordId = recordId
	summary.Normalize()
	return summary, nil
}

package models

// EntityType identifies a deletable/reversible record class. Analyzer and
// dependency-action registries are keyed by this, not by table name.
type EntityType string

const (
	EntityInvoice         EntityType = "invoice"
	EntityInvoicePayment  EntityType = "invoice_payment"
	EntityJobCard         EntityType = "job_card"
	EntityJobLaborLine    EntityType = "job_labor_line"
	EntityJobPartLine     EntityType = "job_part_line"
	EntityPurchase        EntityType = "purchase"
	EntityVehicle         EntityType = "vehicle"
	EntityCustomer        EntityType = "customer"
	EntityCustomerAdvance EntityType = "customer_advance"
	EntityPayrollEntry    EntityType = "payroll_entry"
	EntityStockItem       EntityType = "stock_item"
	EntityPaymentMode     EntityType = "payment_mode"
	EntityServiceType     EntityType = "service_type"
	// ledger journals are only ever reversed, as auto-cascades or directly
	EntityAccountJournal EntityType = "account_journal"
)

// IsFinancial reports whether operating on this entity moves money and
// therefore additionally requires the financial.reverse capability.
func (e EntityType) IsFinancial() bool {
	switch e {
	case EntityInvoice, EntityInvoicePayment, EntityPurchase, EntityCustomerAdvance, EntityPayrollEntry:
		return true
	}
	return false
}

// RequiresReason reports whether confirming an operation on this entity
// must carry a non-empty reason string.
func (e EntityType) RequiresReason() bool {
	return e.IsFinancial() || e == EntityJobCard
}

// Operation is the requested mutation on a record.
type Operation string

const (
	OperationDelete  Operation = "delete"
	OperationCancel  Operation = "cancel"
	OperationReverse Operation = "reverse"
	// OperationAuto lets the executor pick based on live state.
	OperationAuto Operation = "auto"
	OperationNone Operation = "none"
)

// ExecutionMode is how the final operation is applied once cleared.
type ExecutionMode string

const (
	// pure financial rows: net the posting to zero, keep the row
	ExecutionModeFinancialReversal ExecutionMode = "FINANCIAL_REVERSAL"
	// master records with financial history: never hard-deleted
	ExecutionModeDisableOnly ExecutionMode = "DISABLE_ONLY"
	// structural records with no history
	ExecutionModeSoftDelete ExecutionMode = "SOFT_DELETE"
	// composite records whose dependents cascade first
	ExecutionModeSoftDeleteWithReversal ExecutionMode = "SOFT_DELETE_WITH_DEPENDENCY_REVERSAL"
)

// Severity grades a deletion summary for the confirmation UI.
type Severity string

const (
	SeverityNormal Severity = "normal"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// RecordStatus values shared across entities.
type RecordStatus string

const (
	StatusActive    RecordStatus = "ACTIVE"
	StatusInactive  RecordStatus = "INACTIVE"
	StatusDeleted   RecordStatus = "DELETED"
	StatusCancelled RecordStatus = "CANCELLED"
)

// InvoiceStatus lifecycle of a service invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusFinalized InvoiceStatus = "FINALIZED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusDeleted   InvoiceStatus = "DELETED"
)

// JobCardStatus lifecycle of a job card.
type JobCardStatus string

const (
	JobCardStatusOpen      JobCardStatus = "OPEN"
	JobCardStatusClosed    JobCardStatus = "CLOSED"
	JobCardStatusInvoiced  JobCardStatus = "INVOICED"
	JobCardStatusCancelled JobCardStatus = "CANCELLED"
	JobCardStatusDeleted   JobCardStatus = "DELETED"
)

// FinancialEntryType discriminates original postings from reversal rows.
// Classification never falls back to the sign of the amount.
type FinancialEntryType string

const (
	EntryTypePayment  FinancialEntryType = "PAYMENT"
	EntryTypeMovement FinancialEntryType = "MOVEMENT"
	EntryTypeReversal FinancialEntryType = "REVERSAL"
)

// Ledger reference types: one business event class per posting.
type LedgerReferenceType string

const (
	RefTypeInvoiceFinalize LedgerReferenceType = "INVOICE_FINALIZE"
	RefTypePaymentReceipt  LedgerReferenceType = "PAYMENT_RECEIPT"
	RefTypePurchaseReceipt LedgerReferenceType = "PURCHASE_RECEIPT"
	RefTypeAdvanceReceipt  LedgerReferenceType = "ADVANCE_RECEIPT"
	RefTypePayrollAccrual  LedgerReferenceType = "PAYROLL_ACCRUAL"
)

// Capability keys consumed from the permission collaborator.
const (
	CapabilityRecordDelete     = "record.delete"
	CapabilityFinancialReverse = "financial.reverse"
)

package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// CustomerAdvance is money received before invoicing. AdjustedAmount tracks
// how much has been applied against invoices; an advance with adjustments
// cannot be reversed until the adjustments are released.
type CustomerAdvance struct {
	ID             int                `gorm:"primary_key" json:"id"`
	BusinessId     string             `gorm:"index;not null" json:"business_id"`
	BranchId       int                `gorm:"index" json:"branch_id"`
	CustomerId     int                `gorm:"index;not null" json:"customer_id"`
	ReceiptDate    time.Time          `gorm:"not null" json:"receipt_date"`
	Amount         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AdjustedAmount decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"adjusted_amount"`
	PaymentMode    string             `gorm:"size:32" json:"payment_mode"`
	EntryType      FinancialEntryType `gorm:"size:16;not null;default:PAYMENT" json:"entry_type"`

	IsReversed        bool    `gorm:"default:false;index" json:"is_reversed"`
	ReversedAdvanceId *int    `gorm:"index" json:"reversed_advance_id"`
	ReversalReason    *string `gorm:"size:255" json:"reversal_reason"`

	Status    RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	Adjustments []AdvanceAdjustment `gorm:"foreignKey:AdvanceId" json:"adjustments"`
}

// AdvanceAdjustment applies part of an advance against an invoice.
type AdvanceAdjustment struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	AdvanceId  int             `gorm:"index;not null" json:"advance_id"`
	InvoiceId  int             `gorm:"index;not null" json:"invoice_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Status     RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *CustomerAdvance) GetId() int {
	return a.ID
}

// UnadjustedAmount is the portion still available to apply.
func (a *CustomerAdvance) UnadjustedAmount() decimal.Decimal {
	return a.Amount.Sub(a.AdjustedAmount)
}

func GetCustomerAdvance(ctx context.Context, id int) (*CustomerAdvance, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[CustomerAdvance](ctx, businessId, id, "Adjustments")
}

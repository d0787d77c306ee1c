package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// InvoicePayment is one receipt against a service invoice. A reversal is a
// separate row with EntryType=REVERSAL and a negated amount, linked to the
// original via reversed_payment_id; the original is flagged is_reversed.
// EntryType is the discriminator - the amount sign is never used to classify.
type InvoicePayment struct {
	ID          int                `gorm:"primary_key" json:"id"`
	BusinessId  string             `gorm:"index;not null" json:"business_id"`
	BranchId    int                `gorm:"index" json:"branch_id"`
	InvoiceId   int                `gorm:"index;not null" json:"invoice_id"`
	PaymentDate time.Time          `gorm:"not null" json:"payment_date"`
	Amount      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaymentMode string             `gorm:"size:32" json:"payment_mode"`
	EntryType   FinancialEntryType `gorm:"size:16;not null;default:PAYMENT" json:"entry_type"`

	IsReversed        bool    `gorm:"default:false;index" json:"is_reversed"`
	ReversedPaymentId *int    `gorm:"uniqueIndex" json:"reversed_payment_id"`
	ReversalReason    *string `gorm:"size:255" json:"reversal_reason"`

	ReceivedBy int       `json:"received_by"`
	Notes      string    `gorm:"size:255" json:"notes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *InvoicePayment) GetId() int {
	return p.ID
}

func GetInvoicePayment(ctx context.Context, id int) (*InvoicePayment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[InvoicePayment](ctx, businessId, id)
}

package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// ServiceInvoice is a finalized garage service bill. Taxable amount plus
// CGST/SGST make up the grand total posted to the ledger on finalize.
type ServiceInvoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	BranchId      int             `gorm:"index" json:"branch_id"`
	InvoiceNumber string          `gorm:"size:64;not null;index" json:"invoice_number"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date"`
	CustomerId    int             `gorm:"index" json:"customer_id"`
	VehicleId     int             `gorm:"index" json:"vehicle_id"`
	JobCardId     int             `gorm:"index" json:"job_card_id"`
	TaxableAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxable_amount"`
	CgstAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:DRAFT" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	Items    []InvoiceItem    `gorm:"foreignKey:InvoiceId" json:"items"`
	Payments []InvoicePayment `gorm:"foreignKey:InvoiceId" json:"payments"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255" json:"description"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

func (i *ServiceInvoice) GetId() int {
	return i.ID
}

// OutstandingAmount is grand total minus recorded (unreversed) payments.
func (i *ServiceInvoice) OutstandingAmount() decimal.Decimal {
	return i.GrandTotal.Sub(i.AmountPaid)
}

func GetServiceInvoice(ctx context.Context, id int) (*ServiceInvoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[ServiceInvoice](ctx, businessId, id, "Items", "Payments")
}

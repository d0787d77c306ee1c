package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// PayrollEntry accrues one staff member's pay for a period. Paid entries
// are reversed, never deleted.
type PayrollEntry struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	BranchId    int             `gorm:"index" json:"branch_id"`
	StaffName   string          `gorm:"size:255;not null" json:"staff_name"`
	StaffId     int             `gorm:"index" json:"staff_id"`
	PeriodYear  int             `gorm:"not null" json:"period_year"`
	PeriodMonth int             `gorm:"not null" json:"period_month"`
	GrossAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_amount"`
	IsPaid      bool            `gorm:"default:false" json:"is_paid"`

	IsReversed      bool    `gorm:"default:false;index" json:"is_reversed"`
	ReversedEntryId *int    `gorm:"index" json:"reversed_entry_id"`
	ReversalReason  *string `gorm:"size:255" json:"reversal_reason"`

	Status    RecordStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PayrollEntry) GetId() int {
	return p.ID
}

func GetPayrollEntry(ctx context.Context, id int) (*PayrollEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[PayrollEntry](ctx, businessId, id)
}

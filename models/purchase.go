package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase receives parts from a supplier into stock. Each line raises the
// stock item's on-hand quantity via a stock movement; deleting the purchase
// must unwind those movements under lock.
type Purchase struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	BranchId       int             `gorm:"index" json:"branch_id"`
	PurchaseNumber string          `gorm:"size:64;not null;index" json:"purchase_number"`
	PurchaseDate   time.Time       `gorm:"not null" json:"purchase_date"`
	SupplierName   string          `gorm:"size:255" json:"supplier_name"`
	BillReference  string          `gorm:"size:64" json:"bill_reference"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status         RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`

	DeletedBy    int        `json:"deleted_by"`
	DeleteReason string     `gorm:"size:255" json:"delete_reason"`
	DeletedAt    *time.Time `json:"deleted_at"`

	Lines []PurchaseLine `gorm:"foreignKey:PurchaseId" json:"lines"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	PurchaseId  int             `gorm:"index;not null" json:"purchase_id"`
	StockItemId int             `gorm:"index;not null" json:"stock_item_id"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

func (p *Purchase) GetId() int {
	return p.ID
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[Purchase](ctx, businessId, id, "Lines")
}

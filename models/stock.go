package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockItem is one part in the garage store. QtyOnHand is the running
// balance maintained by stock movements; it is only adjusted under a
// row-level lock.
type StockItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	BranchId   int             `gorm:"index" json:"branch_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	PartNumber string          `gorm:"size:64;index" json:"part_number"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	QtyOnHand  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty_on_hand"`
	Status     RecordStatus    `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockMovement records one signed quantity change against a stock item,
// tied to the business document that caused it (purchase line, job part
// line, adjustment). Reversal rows carry EntryType=REVERSAL.
type StockMovement struct {
	ID                int                `gorm:"primary_key" json:"id"`
	BusinessId        string             `gorm:"index;not null" json:"business_id"`
	BranchId          int                `gorm:"index" json:"branch_id"`
	StockItemId       int                `gorm:"index;not null" json:"stock_item_id"`
	MovementDate      time.Time          `gorm:"not null;index" json:"movement_date"`
	Qty               decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"qty"`
	ReferenceType     string             `gorm:"size:64;index:idx_stock_movement_reference" json:"reference_type"`
	ReferenceId       int                `gorm:"index:idx_stock_movement_reference" json:"reference_id"`
	ReferenceDetailId int                `json:"reference_detail_id"`
	EntryType         FinancialEntryType `gorm:"size:16;not null;default:MOVEMENT" json:"entry_type"`
	IsReversed        bool               `gorm:"default:false;index" json:"is_reversed"`
	ReversedMovementId *int              `gorm:"index" json:"reversed_movement_id"`
	Note              string             `gorm:"size:255" json:"note"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

func (s *StockItem) GetId() int {
	return s.ID
}

// LockStockItem loads the stock item with FOR UPDATE so quantity math is
// serialized with concurrent movements.
func LockStockItem(tx *gorm.DB, businessId string, stockItemId int) (*StockItem, error) {
	var item StockItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, stockItemId).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AdjustStockQty applies a signed delta to the locked item's balance.
// Callers must have loaded the row via LockStockItem in the same tx.
func AdjustStockQty(tx *gorm.DB, item *StockItem, delta decimal.Decimal) error {
	newQty := item.QtyOnHand.Add(delta)
	if err := tx.Model(&StockItem{}).
		Where("id = ?", item.ID).
		Update("qty_on_hand", newQty).Error; err != nil {
		return err
	}
	item.QtyOnHand = newQty
	return nil
}

// UnreversedMovementsByReference lists the live movements a document created.
func UnreversedMovementsByReference(tx *gorm.DB, businessId, referenceType string, referenceId int) ([]StockMovement, error) {
	var movements []StockMovement
	err := tx.Where(
		"business_id = ? AND reference_type = ? AND reference_id = ? AND entry_type <> ? AND is_reversed = ?",
		businessId, referenceType, referenceId, EntryTypeReversal, false,
	).Find(&movements).Error
	return movements, err
}

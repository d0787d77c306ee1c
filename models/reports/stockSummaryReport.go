package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// StockSummaryRow is one part's on-hand position and valuation.
type StockSummaryRow struct {
	StockItemId int             `json:"stock_item_id"`
	Name        string          `json:"name"`
	PartNumber  string          `json:"part_number"`
	QtyOnHand   decimal.Decimal `json:"qty_on_hand"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	StockValue  decimal.Decimal `json:"stock_value"`
	Status      string          `json:"status"`
}

// GetStockSummaryReport lists parts with their valuation. Includes
// inactive items so a disabled part's remaining stock stays visible.
func GetStockSummaryReport(ctx context.Context) ([]*StockSummaryRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "stock_summary", started, nil)

	cacheKey := fmt.Sprintf("report:stock_summary:%s", businessId)
	if reportCacheEnabled() {
		var cached []*StockSummaryRow
		if found, err := cacheGet(cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	db := config.GetDB()
	var items []models.StockItem
	err := db.WithContext(ctx).
		Where("business_id = ? AND status <> ?", businessId, models.StatusDeleted).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	var result []*StockSummaryRow
	for _, item := range items {
		result = append(result, &StockSummaryRow{
			StockItemId: item.ID,
			Name:        item.Name,
			PartNumber:  item.PartNumber,
			QtyOnHand:   item.QtyOnHand,
			UnitPrice:   item.UnitPrice,
			StockValue:  item.QtyOnHand.Mul(item.UnitPrice),
			Status:      string(item.Status),
		})
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, result, reportCacheTTL())
	}
	return result, nil
}

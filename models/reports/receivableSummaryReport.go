package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// ReceivableSummaryRow is one customer's outstanding invoice position.
type ReceivableSummaryRow struct {
	CustomerId   int             `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	InvoiceCount int             `json:"invoice_count"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// GetReceivableSummaryReport sums outstanding balances per customer over
// live (finalized, unpaid or partly paid) invoices.
func GetReceivableSummaryReport(ctx context.Context) ([]*ReceivableSummaryRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "receivable_summary", started, nil)

	db := config.GetDB()
	rows, err := db.WithContext(ctx).Raw(`
		SELECT
			c.id AS customer_id,
			c.name AS customer_name,
			COUNT(si.id) AS invoice_count,
			COALESCE(SUM(si.grand_total - si.amount_paid), 0) AS outstanding
		FROM service_invoices AS si
		JOIN customers AS c ON c.id = si.customer_id
		WHERE si.business_id = ?
			AND si.status = ?
			AND si.grand_total > si.amount_paid
		GROUP BY c.id, c.name
		ORDER BY outstanding DESC
	`, businessId, models.InvoiceStatusFinalized).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReceivableSummaryRow
	for rows.Next() {
		var row ReceivableSummaryRow
		if err := rows.Scan(
			&row.CustomerId,
			&row.CustomerName,
			&row.InvoiceCount,
			&row.Outstanding,
		); err != nil {
			return nil, err
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// ReversalHistoryRow pairs a reversed journal with its mirror.
type ReversalHistoryRow struct {
	JournalId         int             `json:"journal_id"`
	ReversalJournalId int             `json:"reversal_journal_id"`
	ReferenceType     string          `json:"reference_type"`
	ReferenceId       int             `json:"reference_id"`
	Narration         string          `json:"narration"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ReversalReason    string          `json:"reversal_reason"`
	JournalDate       time.Time       `json:"journal_date"`
	ReversedAt        time.Time       `json:"reversed_at"`
}

// GetReversalHistoryReport lists ledger reversals in the period, newest
// first. Every row is a journal pair that nets to zero.
func GetReversalHistoryReport(ctx context.Context, fromDate, toDate time.Time, limit int) ([]*ReversalHistoryRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "reversal_history", started, nil)

	if limit <= 0 || limit > 500 {
		limit = 200
	}

	db := config.GetDB()
	rows, err := db.WithContext(ctx).Raw(`
		SELECT
			aj.id AS journal_id,
			aj.reversed_by_journal_id AS reversal_journal_id,
			aj.reference_type,
			aj.reference_id,
			aj.narration,
			aj.total_amount,
			COALESCE(aj.reversal_reason, '') AS reversal_reason,
			aj.journal_date,
			aj.reversed_at
		FROM account_journals AS aj
		WHERE aj.business_id = ?
			AND aj.reversed_by_journal_id IS NOT NULL
			AND aj.reversed_at >= ?
			AND aj.reversed_at <= ?
		ORDER BY aj.reversed_at DESC
		LIMIT ?
	`, businessId, fromDate, toDate, limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReversalHistoryRow
	for rows.Next() {
		var row ReversalHistoryRow
		if err := rows.Scan(
			&row.JournalId,
			&row.ReversalJournalId,
			&row.ReferenceType,
			&row.ReferenceId,
			&row.Narration,
			&row.TotalAmount,
			&row.ReversalReason,
			&row.JournalDate,
			&row.ReversedAt,
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

package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's aggregate position. Because reversal
// journals mirror their originals, a fully reversed document contributes
// zero to every row here.
type TrialBalanceRow struct {
	AccountId   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	MainType    string          `json:"main_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

func GetTrialBalanceReport(ctx context.Context, toDate time.Time, branchId *int) ([]*TrialBalanceRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	started := time.Now()
	defer logSlowReport(ctx, "trial_balance", started, nil)

	cacheKey := fmt.Sprintf("report:trial_balance:%s:%s", businessId, toDate.Format("2006-01-02"))
	if reportCacheEnabled() {
		var cached []*TrialBalanceRow
		if found, err := cacheGet(cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	db := config.GetDB()

	query := `
		SELECT
			ac.id AS account_id,
			ac.code AS account_code,
			ac.name AS account_name,
			ac.main_type AS main_type,
			COALESCE(SUM(at.debit), 0) AS debit,
			COALESCE(SUM(at.credit), 0) AS credit
		FROM accounts AS ac
		LEFT JOIN account_transactions AS at ON at.account_id = ac.id
		LEFT JOIN account_journals AS aj ON aj.id = at.journal_id
			AND aj.business_id = ?
			AND aj.journal_date <= ?
		WHERE ac.business_id = ?
	`
	args := []interface{}{businessId, toDate, businessId}
	if branchId != nil && *branchId > 0 {
		query += " AND (at.branch_id = ? OR at.branch_id IS NULL)"
		args = append(args, *branchId)
	}
	query += `
		GROUP BY ac.id, ac.code, ac.name, ac.main_type
		ORDER BY
			CASE
				WHEN ac.main_type = 'Asset' THEN 1
				WHEN ac.main_type = 'Liability' THEN 2
				WHEN ac.main_type = 'Equity' THEN 3
				WHEN ac.main_type = 'Income' THEN 4
				ELSE 5
			END,
			ac.code ASC
	`

	rows, err := db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []*TrialBalanceRow
	for rows.Next() {
		var row TrialBalanceRow
		if err := rows.Scan(
			&row.AccountId,
			&row.AccountCode,
			&row.AccountName,
			&row.MainType,
			&row.Debit,
			&row.Credit,
		); err != nil {
			return nil, err
		}
		balances = append(balances, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, balances, reportCacheTTL())
	}
	return balances, nil
}

package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// balanceTolerance absorbs decimal(20,4) rounding drift. Anything larger
// than a paisa off is a bug in the caller, not rounding.
var balanceTolerance = decimal.NewFromFloat(0.01)

// JournalLine is one leg of a posting, addressed by account code so
// callers never carry tenant-specific account ids.
type JournalLine struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	CustomerId  int
}

// JournalInput describes one balanced posting for a business event.
type JournalInput struct {
	JournalDate   time.Time
	Narration     string
	ReferenceType models.LedgerReferenceType
	ReferenceId   int
	CustomerId    int
	BranchId      int
	Lines         []JournalLine
}

// PostJournal writes one balanced journal inside the caller's transaction.
//
// Idempotent on (business, reference_type, reference_id): when a live
// (unreversed, non-reversal) journal already exists for the reference, it
// is returned unchanged and nothing is written. A reversed posting does
// not block a fresh one, so a corrected document can re-post.
func PostJournal(tx *gorm.DB, businessId string, input JournalInput) (*models.AccountJournal, error) {
	if input.JournalDate.IsZero() {
		return nil, utils.ErrorInvalidDate
	}
	if len(input.Lines) < 2 {
		return nil, utils.ErrorUnbalancedJournal
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range input.Lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceTolerance) {
		return nil, utils.ErrorUnbalancedJournal
	}

	var existing models.AccountJournal
	err := tx.Where(
		"business_id = ? AND reference_type = ? AND reference_id = ? AND is_reversal = ? AND reversed_by_journal_id IS NULL",
		businessId, string(input.ReferenceType), input.ReferenceId, false,
	).Preload("Transactions").First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	journal := models.AccountJournal{
		BusinessId:    businessId,
		BranchId:      input.BranchId,
		JournalDate:   input.JournalDate,
		Narration:     input.Narration,
		ReferenceType: string(input.ReferenceType),
		ReferenceId:   input.ReferenceId,
		CustomerId:    input.CustomerId,
		TotalAmount:   totalDebit,
	}

	for _, line := range input.Lines {
		account, err := models.GetAccountByCode(tx, businessId, line.AccountCode)
		if err != nil {
			return nil, utils.ErrorInvalidAccount
		}
		journal.Transactions = append(journal.Transactions, models.AccountTransaction{
			AccountId:   account.ID,
			BranchId:    input.BranchId,
			CustomerId:  line.CustomerId,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}

	if err := tx.Create(&journal).Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

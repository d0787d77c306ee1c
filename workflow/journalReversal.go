package workflow

import (
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errReverseReversal = errors.New("a reversal journal cannot be reversed")

// ReverseAccountJournal posts the mirror of an existing journal: same
// accounts, debit and credit swapped, linked both ways. The original stays
// untouched apart from its reversal markers; posted journals are never
// edited or deleted.
//
// At most one reversal can ever exist for a journal. The link on the
// original is claimed with a conditional update, so two concurrent
// reversals cannot both commit.
func ReverseAccountJournal(tx *gorm.DB, businessId string, journalId int, reason string) (*models.AccountJournal, error) {
	var original models.AccountJournal
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, journalId).
		First(&original).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := tx.Where("journal_id = ?", original.ID).
		Find(&original.Transactions).Error; err != nil {
		return nil, err
	}

	if original.IsReversal {
		return nil, errReverseReversal
	}
	if original.IsReversed() {
		return nil, utils.ErrorAlreadyReversed
	}
	if len(original.Transactions) == 0 {
		return nil, utils.ErrorUnbalancedJournal
	}

	reversal := models.AccountJournal{
		BusinessId:        businessId,
		BranchId:          original.BranchId,
		JournalDate:       time.Now(),
		Narration:         fmt.Sprintf("Reversal of journal #%d: %s", original.ID, original.Narration),
		ReferenceType:     original.ReferenceType,
		ReferenceId:       original.ReferenceId,
		CustomerId:        original.CustomerId,
		TotalAmount:       original.TotalAmount,
		IsReversal:        true,
		ReversesJournalId: &original.ID,
	}
	for _, t := range original.Transactions {
		reversal.Transactions = append(reversal.Transactions, models.AccountTransaction{
			AccountId:   t.AccountId,
			BranchId:    t.BranchId,
			CustomerId:  t.CustomerId,
			Description: fmt.Sprintf("Reversal: %s", t.Description),
			Debit:       t.Credit,
			Credit:      t.Debit,
		})
	}
	if err := tx.Create(&reversal).Error; err != nil {
		// reverses_journal_id is unique: a concurrent reversal already won
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.ErrorAlreadyReversed
		}
		return nil, err
	}

	now := time.Now()
	result := tx.Model(&models.AccountJournal{}).
		Where("id = ? AND reversed_by_journal_id IS NULL", original.ID).
		Updates(map[string]interface{}{
			"reversed_by_journal_id": reversal.ID,
			"reversal_reason":        reason,
			"reversed_at":            now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, utils.ErrorAlreadyReversed
	}

	return &reversal, nil
}

// ReverseJournalsByReference reverses every live journal posted for a
// business document. Returns the ids of the reversal journals created;
// an empty slice when the document never posted (or was already reversed)
// is not an error.
func ReverseJournalsByReference(tx *gorm.DB, businessId string, referenceType models.LedgerReferenceType, referenceId int, reason string) ([]int, error) {
	var journals []models.AccountJournal
	if err := tx.Where(
		"business_id = ? AND reference_type = ? AND reference_id = ? AND is_reversal = ? AND reversed_by_journal_id IS NULL",
		businessId, string(referenceType), referenceId, false,
	).Find(&journals).Error; err != nil {
		return nil, err
	}

	var reversalIds []int
	for _, j := range journals {
		reversal, err := ReverseAccountJournal(tx, businessId, j.ID, reason)
		if err != nil {
			return nil, err
		}
		reversalIds = append(reversalIds, reversal.ID)
	}
	return reversalIds, nil
}

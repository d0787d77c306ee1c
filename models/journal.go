package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountJournal is one balanced double-entry posting tied to a single
// business event. Journals are append-only: a posted journal is never
// edited; corrections happen only via a new reversing journal.
type AccountJournal struct {
	ID          int                  `gorm:"primary_key" json:"id"`
	BusinessId  string               `gorm:"index;not null" json:"business_id"`
	BranchId    int                  `gorm:"index" json:"branch_id"`
	JournalDate time.Time            `gorm:"not null;index" json:"journal_date"`
	Narration   string               `gorm:"type:text" json:"narration"`

	// Idempotency key: one journal per (business, reference_type, reference_id)
	// unless earlier postings for the reference were reversed.
	ReferenceType string `gorm:"size:64;not null;index:idx_journal_reference" json:"reference_type"`
	ReferenceId   int    `gorm:"not null;index:idx_journal_reference" json:"reference_id"`

	CustomerId int `gorm:"index" json:"customer_id"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`

	IsReversal          bool       `gorm:"default:false" json:"is_reversal"`
	ReversesJournalId   *int       `gorm:"uniqueIndex" json:"reverses_journal_id"`
	ReversedByJournalId *int       `gorm:"index" json:"reversed_by_journal_id"`
	ReversalReason      *string    `gorm:"size:255" json:"reversal_reason"`
	ReversedAt          *time.Time `json:"reversed_at"`

	Transactions []AccountTransaction `gorm:"foreignKey:JournalId" json:"transactions"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountTransaction is one debit-or-credit line within a journal.
type AccountTransaction struct {
	ID          int             `gorm:"primary_key" json:"id"`
	JournalId   int             `gorm:"index;not null" json:"journal_id"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
	BranchId    int             `json:"branch_id"`
	CustomerId  int             `json:"customer_id"`
	Description string          `gorm:"size:255" json:"description"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}

func (j *AccountJournal) GetId() int {
	return j.ID
}

func (t AccountTransaction) GetId() int {
	return t.ID
}

// IsReversed reports whether a reversal journal already exists for this one.
func (j *AccountJournal) IsReversed() bool {
	return j.ReversedByJournalId != nil && *j.ReversedByJournalId > 0
}

package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// Deletion / reversal engine error taxonomy. Business-rule violations are
// plain values the caller matches with errors.Is; they are never panics.
var (
	// registry misses
	ErrorUnsupportedEntity  = errors.New("unsupported entity type")
	ErrorActionNotSupported = errors.New("dependency action not supported")

	// preview token protocol
	ErrorInvalidSummary  = errors.New("summary must name an entity and record")
	ErrorPreviewRequired = errors.New("deletion preview is required before confirmation")
	ErrorPreviewExpired  = errors.New("deletion preview has expired, please review again")
	ErrorScopeChanged    = errors.New("business or branch scope changed since preview")
	ErrorPreviewMismatch = errors.New("preview does not match the requested record")

	// missing explicit user intent
	ErrorConfirmationRequired = errors.New("type CONFIRM to proceed")
	ErrorReasonRequired       = errors.New("a reason is required for this operation")
	ErrorPermissionDenied     = errors.New("permission denied")

	// idempotency guards
	ErrorAlreadyReversed = errors.New("record is already reversed")
	ErrorAlreadyDeleted  = errors.New("record is already deleted")

	// ledger invariants
	ErrorUnbalancedJournal = errors.New("journal debits and credits do not balance")
	ErrorInvalidAccount    = errors.New("invalid ledger account")
	ErrorInvalidDate       = errors.New("invalid journal date")

	// stock already advanced past the point of safe reversal
	ErrorDownstreamConsumption = errors.New("stock from this record was already consumed downstream")
)

// BlockedError carries the blocker list when an operation is vetoed by
// dependency analysis. Unwraps to a common sentinel so callers can match
// with errors.Is while still reading the individual reasons.
type BlockedError struct {
	Blockers []string
	// Remediations lists ordered steps the caller can take to clear the
	// blockers ("reverse payment X, then retry").
	Remediations []string
}

var ErrorBlockedByDependency = errors.New("operation blocked by dependent records")

func (e *BlockedError) Error() string {
	if len(e.Blockers) == 0 {
		return ErrorBlockedByDependency.Error()
	}
	return fmt.Sprintf("operation blocked: %s", strings.Join(e.Blockers, "; "))
}

func (e *BlockedError) Unwrap() error { return ErrorBlockedByDependency }

func NewBlockedError(blockers []string, remediations ...string) *BlockedError {
	return &BlockedError{Blockers: blockers, Remediations: remediations}
}

// IsDuplicateKeyError reports a MySQL 1062 unique key violation. Reversal
// rows carry unique links to their originals, so a concurrent double
// reversal surfaces here when both writers get past the row lock.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
